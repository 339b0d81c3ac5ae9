package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/status"
	goredis "github.com/go-redis/redis/v8"
)

// setUnlessTerminal writes ARGV[1] with a PX of ARGV[2] unless the current
// value is a completed or error blob. Returns 1 when written, 0 otherwise.
var setUnlessTerminal = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	if string.find(cur, '"status":"completed"', 1, true) or string.find(cur, '"status":"error"', 1, true) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// StatusCache implements status.Cache on top of redis.
type StatusCache struct {
	client *goredis.Client
	logger *slog.Logger
}

var _ status.Cache = (*StatusCache)(nil)

// NewStatusCache creates a StatusCache using client.
func NewStatusCache(client *goredis.Client, logger *slog.Logger) *StatusCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusCache{
		client: client,
		logger: logger.With(slog.String("component", "redis_status_cache")),
	}
}

// Set stores entry under key for ttl. A terminal entry already stored under
// key is left untouched and ErrTerminal is returned.
func (c *StatusCache) Set(ctx context.Context, key string, entry status.Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = status.DefaultTTL
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode status entry: %w", err)
	}

	written, err := setUnlessTerminal.Run(ctx, c.client, []string{key}, string(payload), ttl.Milliseconds()).Int()
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Error("failed to write status entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to write status entry: %w", err)
	}
	if written == 0 {
		return status.ErrTerminal
	}
	return nil
}

// Get returns the entry stored under key, or status.ErrNotFound.
func (c *StatusCache) Get(ctx context.Context, key string) (status.Entry, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return status.Entry{}, status.ErrNotFound
	}
	if err != nil {
		return status.Entry{}, fmt.Errorf("failed to read status entry: %w", err)
	}

	var entry status.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Warn("discarding unreadable status entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return status.Entry{}, status.ErrNotFound
	}
	return entry, nil
}

// Delete removes key.
func (c *StatusCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete status entry: %w", err)
	}
	return nil
}
