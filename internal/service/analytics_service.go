package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/google/uuid"
)

// AnalyticsService records analytics events. Tracking is fire-and-forget:
// events are handed to the task runner and failures are only logged.
type AnalyticsService struct {
	emitter   events.EventEmitter
	events    store.AnalyticsStore
	userStore store.UserStore
	logger    *slog.Logger
	now       func() time.Time
}

var _ task.EventRecorder = (*AnalyticsService)(nil)

// NewAnalyticsService creates an AnalyticsService.
func NewAnalyticsService(
	emitter events.EventEmitter,
	analyticsStore store.AnalyticsStore,
	userStore store.UserStore,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		emitter:   emitter,
		events:    analyticsStore,
		userStore: userStore,
		logger:    logger.With("component", "analytics_service"),
		now:       time.Now,
	}
}

// Track queues an event of eventType with metadata, attributed according to
// meta.
func (s *AnalyticsService) Track(ctx context.Context, eventType string, metadata map[string]any, meta RequestMeta) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := domain.NewAnalyticsEvent(eventType, metadata)
	if err != nil {
		log.Warn("dropping invalid analytics event", redact.ErrorAttr(err))
		return
	}
	event.UserID = meta.UserID
	event.SessionKey = meta.SessionKey
	event.IPAddress = meta.IPAddress
	event.UserAgent = meta.UserAgent
	event.Referrer = meta.Referrer

	if _, err := events.Publish(ctx, s.emitter, task.TypeAnalyticsEvent, event, logger.TraceID(ctx)); err != nil {
		log.Error("failed to queue analytics event",
			slog.String("event_type", eventType),
			redact.ErrorAttr(err))
	}
}

// TrackPageView records a page_view event for path.
func (s *AnalyticsService) TrackPageView(ctx context.Context, path, title string, meta RequestMeta) {
	s.Track(ctx, domain.EventPageView, map[string]any{
		"path":      path,
		"title":     title,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}, meta)
}

// TrackClientAction records a user_action event reported by a client. The
// action name goes into the metadata so clients cannot pick the event type.
func (s *AnalyticsService) TrackClientAction(ctx context.Context, action string, metadata map[string]any, meta RequestMeta) {
	data := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		data[k] = v
	}
	data["action"] = action
	s.Track(ctx, domain.EventUserAction, data, meta)
}

// TrackUserAction records an event named after action for userID. Only
// server code may choose action; client input goes through TrackClientAction.
func (s *AnalyticsService) TrackUserAction(
	ctx context.Context,
	action string,
	userID uuid.UUID,
	metadata map[string]any,
	sessionKey string,
) {
	s.Track(ctx, action, metadata, RequestMeta{UserID: &userID, SessionKey: sessionKey})
}

// Record stores event. An event naming a user that no longer exists is stored
// as anonymous.
func (s *AnalyticsService) Record(ctx context.Context, event *domain.AnalyticsEvent) error {
	if event.UserID != nil {
		_, err := s.userStore.GetByID(ctx, *event.UserID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			logger.FromContextOrDefault(ctx, s.logger).Debug("analytics event user not found, storing as anonymous",
				slog.String("event_type", event.EventType))
			event.UserID = nil
		case err != nil:
			return err
		}
	}
	return s.events.Create(ctx, event)
}
