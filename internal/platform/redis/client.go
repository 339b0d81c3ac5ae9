package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/redact"
	goredis "github.com/go-redis/redis/v8"
)

const pingTimeout = 5 * time.Second

// NewClient parses url, connects and verifies the server answers PING.
func NewClient(ctx context.Context, url string, logger *slog.Logger) (*goredis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %s", redact.String(err.Error()))
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %s", redact.String(err.Error()))
	}

	logger.Info("redis connection established",
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB))
	return client, nil
}
