package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	verification map[uuid.UUID]string
	reset        map[uuid.UUID]string
	err          error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verification: map[uuid.UUID]string{}, reset: map[uuid.UUID]string{}}
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, userID uuid.UUID, token string) error {
	m.verification[userID] = token
	return m.err
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, userID uuid.UUID, token string) error {
	m.reset[userID] = token
	return m.err
}

type notifierFunc func(ctx context.Context, userID uuid.UUID) error

func (f notifierFunc) CreateWelcomeNotification(ctx context.Context, userID uuid.UUID) error {
	return f(ctx, userID)
}

type recorderFunc func(ctx context.Context, e *domain.AnalyticsEvent) error

func (f recorderFunc) Record(ctx context.Context, e *domain.AnalyticsEvent) error {
	return f(ctx, e)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestEmailTasks(t *testing.T) {
	mailer := newFakeMailer()
	userID := uuid.New()
	payload := mustJSON(t, EmailPayload{UserID: userID, Token: "tok-123"})

	verify, err := VerificationEmailFactory(mailer)(uuid.New(), payload)
	require.NoError(t, err)
	assert.Equal(t, TypeVerificationEmail, verify.Type())
	require.NoError(t, verify.Execute(taskContext(t)))
	assert.Equal(t, "tok-123", mailer.verification[userID])
	assert.Equal(t, TaskStatusCompleted, verify.Status())

	reset, err := PasswordResetEmailFactory(mailer)(uuid.New(), payload)
	require.NoError(t, err)
	require.NoError(t, reset.Execute(taskContext(t)))
	assert.Equal(t, "tok-123", mailer.reset[userID])

	mailer.err = errors.New("smtp down")
	failing, err := PasswordResetEmailFactory(mailer)(uuid.New(), payload)
	require.NoError(t, err)
	assert.Error(t, failing.Execute(taskContext(t)))
	assert.Equal(t, TaskStatusFailed, failing.Status())

	_, err = VerificationEmailFactory(mailer)(uuid.New(), mustJSON(t, EmailPayload{UserID: userID}))
	assert.Error(t, err, "a missing token is rejected")
	_, err = VerificationEmailFactory(mailer)(uuid.New(), []byte(`not json`))
	assert.Error(t, err)
}

func TestWelcomeNotificationTask(t *testing.T) {
	userID := uuid.New()
	var got uuid.UUID
	f := WelcomeNotificationFactory(notifierFunc(func(_ context.Context, id uuid.UUID) error {
		got = id
		return nil
	}))

	built, err := f(uuid.New(), mustJSON(t, WelcomePayload{UserID: userID}))
	require.NoError(t, err)
	require.NoError(t, built.Execute(taskContext(t)))
	assert.Equal(t, userID, got)

	_, err = f(uuid.New(), []byte(`{}`))
	assert.Error(t, err)
}

func TestAnalyticsEventTask_SwallowsRecordErrors(t *testing.T) {
	calls := 0
	f := AnalyticsEventFactory(recorderFunc(func(_ context.Context, e *domain.AnalyticsEvent) error {
		calls++
		assert.Equal(t, domain.EventChatQuery, e.EventType)
		return errors.New("insert failed")
	}))

	event, err := domain.NewAnalyticsEvent(domain.EventChatQuery, map[string]any{"query_length": 12})
	require.NoError(t, err)
	built, err := f(uuid.New(), mustJSON(t, event))
	require.NoError(t, err)

	assert.NoError(t, built.Execute(taskContext(t)))
	assert.Equal(t, 1, calls)

	_, err = f(uuid.New(), []byte(`{"metadata":{}}`))
	assert.Error(t, err, "an event without a type is rejected")
}
