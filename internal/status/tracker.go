package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/google/uuid"
)

// Tracker writes and reads the status of replies keyed by the user message
// they answer. It applies the key format and TTL so callers deal in message ids.
type Tracker struct {
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewTracker creates a Tracker over cache. A non-positive ttl uses DefaultTTL.
func NewTracker(cache Cache, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{cache: cache, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime applied to entries.
func (t *Tracker) TTL() time.Duration {
	return t.ttl
}

// MarkProcessing records that generation for messageID has started. It is a
// no-op when the entry is already terminal, e.g. a recovered task that had
// finished before a crash.
func (t *Tracker) MarkProcessing(ctx context.Context, messageID uuid.UUID) error {
	err := t.cache.Set(ctx, Key(messageID), NewProcessing(t.now()), t.ttl)
	if errors.Is(err, ErrTerminal) {
		return nil
	}
	return err
}

// Complete records the stored AI reply.
func (t *Tracker) Complete(
	ctx context.Context,
	messageID, replyID uuid.UUID,
	response string,
	sources []domain.Source,
	responseTime time.Duration,
) error {
	entry := NewCompleted(replyID, response, sources, int(responseTime.Milliseconds()), t.now())
	return t.finish(ctx, messageID, entry)
}

// Fail records a failed generation. replyID is the persisted fallback, if any.
func (t *Tracker) Fail(ctx context.Context, messageID uuid.UUID, replyID *uuid.UUID) error {
	return t.finish(ctx, messageID, NewError(replyID, t.now()))
}

func (t *Tracker) finish(ctx context.Context, messageID uuid.UUID, entry Entry) error {
	err := t.cache.Set(ctx, Key(messageID), entry, t.ttl)
	if errors.Is(err, ErrTerminal) {
		logger.FromContext(ctx).Warn("status already terminal, keeping first result",
			slog.String("message_id", messageID.String()),
			slog.String("attempted_status", string(entry.Status)))
	}
	return err
}

// Lookup returns the current entry for messageID or ErrNotFound.
func (t *Tracker) Lookup(ctx context.Context, messageID uuid.UUID) (Entry, error) {
	return t.cache.Get(ctx, Key(messageID))
}
