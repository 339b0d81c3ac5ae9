package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// PublicURL is the externally visible base URL used in emailed links.
	PublicURL string `mapstructure:"public_url" validate:"required,url"`
	// ChatRateLimit is the sustained number of chat queries per second allowed
	// for a single caller (user, session key or IP).
	ChatRateLimit float64 `mapstructure:"chat_rate_limit" validate:"gt=0"`
	ChatRateBurst int     `mapstructure:"chat_rate_burst" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// RedisConfig configures the redis instance backing the response status
// cache and refresh token revocations. When disabled, in-memory
// implementations are used instead.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	// ResetTokenLifetimeMinutes bounds how long a password reset link stays valid.
	ResetTokenLifetimeMinutes int `mapstructure:"reset_token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=5"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
	// HistoryLimit is how many earlier session messages are included in the prompt.
	HistoryLimit int `mapstructure:"history_limit" validate:"gte=0,lte=50"`
	// SourceLimit is how many knowledge base entries are attached to a prompt.
	SourceLimit int `mapstructure:"source_limit" validate:"gte=0,lte=10"`
}

// TaskConfig configures the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	// StatusTTLSeconds is how long response status entries live in the cache.
	StatusTTLSeconds int `mapstructure:"status_ttl_seconds" validate:"required,gt=0"`
	// CleanupSchedule is a cron expression for periodic maintenance.
	CleanupSchedule string `mapstructure:"cleanup_schedule" validate:"required"`
	// TaskRetentionDays is how long finished task rows are kept.
	TaskRetentionDays int `mapstructure:"task_retention_days" validate:"gt=0"`
}

// MailConfig configures outgoing email. When disabled, messages are only logged.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"     validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port"     validate:"omitempty,gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"required,email"`
}

// StorageConfig configures where uploaded avatars are written and served from.
type StorageConfig struct {
	AvatarDir      string `mapstructure:"avatar_dir"       validate:"required"`
	AvatarBaseURL  string `mapstructure:"avatar_base_url"  validate:"required"`
	MaxAvatarBytes int64  `mapstructure:"max_avatar_bytes" validate:"gt=0"`
}
