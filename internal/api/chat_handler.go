package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/google/uuid"
)

// Chat response bodies.
const (
	statusNotFound          = "not_found"
	responseNotFoundMessage = "Response not found or expired"
	feedbackRecordedMessage = "Feedback recorded"
)

// ChatService is the chat behaviour the chat handler needs.
type ChatService interface {
	Submit(ctx context.Context, in service.QueryInput, meta service.RequestMeta) (*service.QueryResult, error)
	ResponseStatus(ctx context.Context, messageID uuid.UUID) (status.Entry, error)
	History(ctx context.Context, meta service.RequestMeta) ([]domain.SessionWithMessages, error)
	GetSession(ctx context.Context, id uuid.UUID, meta service.RequestMeta) (*domain.SessionWithMessages, error)
}

// FeedbackService records ratings of messages and sessions.
type FeedbackService interface {
	RateMessage(ctx context.Context, in service.MessageFeedbackInput, meta service.RequestMeta) error
	RateSession(ctx context.Context, in service.SessionFeedbackInput, meta service.RequestMeta) (*domain.ChatFeedback, error)
}

// ChatHandler handles chat queries, response polling, history and feedback.
type ChatHandler struct {
	chat     ChatService
	feedback FeedbackService
	logger   *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat ChatService, feedback FeedbackService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ChatHandler")
	}
	return &ChatHandler{
		chat:     chat,
		feedback: feedback,
		logger:   logger.With(slog.String("component", "chat_handler")),
	}
}

// Query handles POST /api/chat/query. The reply is generated in the
// background; clients poll GetResponse with the returned user_message_id.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ChatQueryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.chat.Submit(r.Context(), service.QueryInput{
		Query:     req.Query,
		SessionID: req.SessionID,
		Context:   req.Context,
		Audience:  req.Audience,
		Depth:     req.Depth,
		Tone:      req.Tone,
	}, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit query")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("chat query accepted",
		slog.String("session_id", result.SessionID.String()),
		slog.String("message_id", result.UserMessageID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetResponse handles GET /api/chat/responses/{message_id}.
func (h *ChatHandler) GetResponse(w http.ResponseWriter, r *http.Request) {
	messageID, err := getPathUUID(r, "message_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entry, err := h.chat.ResponseStatus(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			shared.RespondWithJSON(w, r, http.StatusNotFound, NotFoundStatusResponse{
				Status:  statusNotFound,
				Message: responseNotFoundMessage,
			})
			return
		}
		HandleAPIError(w, r, err, "Failed to load response status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entry)
}

// History handles GET /api/chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chat.History(r.Context(), requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load chat history")
		return
	}
	if sessions == nil {
		sessions = []domain.SessionWithMessages{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessions)
}

// GetSession handles GET /api/chat/sessions/{session_id}.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getPathUUID(r, "session_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	session, err := h.chat.GetSession(r.Context(), sessionID, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, session)
}

// MessageFeedback handles POST /api/chat/feedback/message.
func (h *ChatHandler) MessageFeedback(w http.ResponseWriter, r *http.Request) {
	var req MessageFeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.feedback.RateMessage(r.Context(), service.MessageFeedbackInput{
		MessageID: *req.MessageID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record feedback")
		return
	}
	h.respondFeedbackRecorded(w, r)
}

// SessionFeedback handles POST /api/chat/feedback/session.
func (h *ChatHandler) SessionFeedback(w http.ResponseWriter, r *http.Request) {
	var req SessionFeedbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_, err := h.feedback.RateSession(r.Context(), service.SessionFeedbackInput{
		SessionID:      *req.SessionID,
		OverallRating:  req.OverallRating,
		Helpfulness:    req.Helpfulness,
		Accuracy:       req.Accuracy,
		WouldRecommend: req.WouldRecommend,
		Comment:        req.Comment,
	}, requestMeta(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record feedback")
		return
	}
	h.respondFeedbackRecorded(w, r)
}

func (h *ChatHandler) respondFeedbackRecorded(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{
		Status:  "success",
		Message: feedbackRecordedMessage,
	})
}
