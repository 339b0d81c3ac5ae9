package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. COLLOQUY_SERVER_PORT.
const EnvPrefix = "COLLOQUY"

// configKeys lists every key that may come from the environment. Viper only
// unmarshals environment values for keys it knows about, so each one is bound
// explicitly.
var configKeys = []string{
	"server.port",
	"server.log_level",
	"server.public_url",
	"server.chat_rate_limit",
	"server.chat_rate_burst",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime_minutes",
	"redis.enabled",
	"redis.url",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"auth.refresh_token_lifetime_minutes",
	"auth.bcrypt_cost",
	"auth.reset_token_lifetime_minutes",
	"llm.gemini_api_key",
	"llm.model_name",
	"llm.max_retries",
	"llm.retry_delay_seconds",
	"llm.history_limit",
	"llm.source_limit",
	"task.worker_count",
	"task.queue_size",
	"task.stuck_task_age_minutes",
	"task.status_ttl_seconds",
	"task.cleanup_schedule",
	"task.task_retention_days",
	"mail.enabled",
	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.from",
	"storage.avatar_dir",
	"storage.avatar_base_url",
	"storage.max_avatar_bytes",
}

// setDefaults registers the default value for every optional setting.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_url", "http://localhost:3000")
	v.SetDefault("server.chat_rate_limit", 1.0)
	v.SetDefault("server.chat_rate_burst", 5)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("redis.enabled", false)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.reset_token_lifetime_minutes", 60)

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("llm.history_limit", 10)
	v.SetDefault("llm.source_limit", 3)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("task.status_ttl_seconds", 300)
	v.SetDefault("task.cleanup_schedule", "@every 10m")
	v.SetDefault("task.task_retention_days", 7)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@colloquy.local")

	v.SetDefault("storage.avatar_dir", "./data/avatars")
	v.SetDefault("storage.avatar_base_url", "/media/avatars")
	v.SetDefault("storage.max_avatar_bytes", 5*1024*1024)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first if present; it never
// overrides variables already set in the process environment.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a configuration against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
