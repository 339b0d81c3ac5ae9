package api

import (
	"context"
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/service"
)

// AnalyticsTracker queues analytics events. Tracking never fails the request.
type AnalyticsTracker interface {
	TrackPageView(ctx context.Context, path, title string, meta service.RequestMeta)
	TrackClientAction(ctx context.Context, action string, metadata map[string]any, meta service.RequestMeta)
}

// AnalyticsHandler records client side analytics.
type AnalyticsHandler struct {
	tracker AnalyticsTracker
}

func NewAnalyticsHandler(tracker AnalyticsTracker) *AnalyticsHandler {
	return &AnalyticsHandler{tracker: tracker}
}

// PageView handles POST /api/analytics/page-view.
func (h *AnalyticsHandler) PageView(w http.ResponseWriter, r *http.Request) {
	var req PageViewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.tracker.TrackPageView(r.Context(), req.Path, req.Title, requestMeta(r))
	w.WriteHeader(http.StatusAccepted)
}

// UserAction handles POST /api/analytics/action for authenticated users.
func (h *AnalyticsHandler) UserAction(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	var req UserActionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.tracker.TrackClientAction(r.Context(), req.Action, req.Metadata, requestMeta(r))
	w.WriteHeader(http.StatusAccepted)
}
