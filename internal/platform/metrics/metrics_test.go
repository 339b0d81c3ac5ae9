package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/task"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskObserver(t *testing.T) {
	m := New()

	m.TaskSubmitted("ai_response_generation")
	m.TaskSubmitted("ai_response_generation")
	m.TaskFinished("ai_response_generation", task.TaskStatusCompleted, 2*time.Second)
	m.TaskFinished("ai_response_generation", task.TaskStatusFailed, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.taskSubmitted.WithLabelValues("ai_response_generation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskFinished.WithLabelValues("ai_response_generation", string(task.TaskStatusCompleted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taskFinished.WithLabelValues("ai_response_generation", string(task.TaskStatusFailed))))
}

func TestJobRan(t *testing.T) {
	m := New()
	m.JobRan("prune_tasks", nil)
	m.JobRan("prune_tasks", errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("prune_tasks", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("prune_tasks", "false")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/chat/responses/{message_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/api/chat/responses/a", "/api/chat/responses/b", "/health"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/chat/responses/{message_id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/health", "200")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "colloquy_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
