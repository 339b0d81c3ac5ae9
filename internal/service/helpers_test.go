package service_test

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/mocks"
	"github.com/colloquyhq/colloquy-api/internal/platform/logger"
	"github.com/colloquyhq/colloquy-api/internal/platform/mail"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingEmitter captures published task events instead of running them.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

func (e *recordingEmitter) ofType(taskType string) []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*events.TaskRequestEvent
	for _, ev := range e.events {
		if ev.Type == taskType {
			out = append(out, ev)
		}
	}
	return out
}

type sentMail struct {
	kind  string
	to    mail.Recipient
	token string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) SendVerification(_ context.Context, to mail.Recipient, token string) error {
	m.sent = append(m.sent, sentMail{kind: "verification", to: to, token: token})
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to mail.Recipient, token string) error {
	m.sent = append(m.sent, sentMail{kind: "reset", to: to, token: token})
	return nil
}

type fakeAvatars struct {
	saved map[uuid.UUID][]byte
	err   error
}

func (a *fakeAvatars) Save(_ context.Context, userID uuid.UUID, r io.Reader) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if a.saved == nil {
		a.saved = make(map[uuid.UUID][]byte)
	}
	a.saved[userID] = data
	return "/media/avatars/" + userID.String() + ".png", nil
}

// newTxDB returns a sqlmock database for services that open transactions.
// The stores themselves are in-memory mocks, so only BEGIN and COMMIT or
// ROLLBACK reach it.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

// fixture wires every service against in-memory stores.
type fixture struct {
	db       *sql.DB
	sqlMock  sqlmock.Sqlmock
	emitter  *recordingEmitter
	users    *mocks.MockUserStore
	resets   *mocks.MockPasswordResetStore
	sessions *mocks.MockChatSessionStore
	messages *mocks.MockChatMessageStore
	feedback *mocks.MockChatFeedbackStore
	kb       *mocks.MockKnowledgeStore
	events   *mocks.MockAnalyticsStore
	notes    *mocks.MockNotificationStore
	jwt      *mocks.MockJWTService
	mailer   *fakeMailer
	avatars  *fakeAvatars
	cache    *status.MemoryCache
	tracker  *status.Tracker

	analytics     *service.AnalyticsService
	accounts      *service.AccountService
	chat          *service.ChatService
	feedbackSvc   *service.FeedbackService
	notifications *service.NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewTestLogger(t)
	db, sqlMock := newTxDB(t)

	f := &fixture{
		db:       db,
		sqlMock:  sqlMock,
		emitter:  &recordingEmitter{},
		users:    mocks.NewMockUserStore(),
		resets:   &mocks.MockPasswordResetStore{},
		sessions: mocks.NewMockChatSessionStore(),
		messages: mocks.NewMockChatMessageStore(),
		feedback: &mocks.MockChatFeedbackStore{},
		kb:       &mocks.MockKnowledgeStore{},
		events:   &mocks.MockAnalyticsStore{},
		notes:    &mocks.MockNotificationStore{},
		jwt: &mocks.MockJWTService{
			Token:        "access-token",
			RefreshToken: "refresh-token",
		},
		mailer:  &fakeMailer{},
		avatars: &fakeAvatars{},
		cache:   status.NewMemoryCache(),
	}
	f.sessions.Messages = f.messages
	f.tracker = status.NewTracker(f.cache, time.Minute)

	f.analytics = service.NewAnalyticsService(f.emitter, f.events, f.users, log)
	f.accounts = service.NewAccountService(service.AccountDeps{
		DB:            db,
		Users:         f.users,
		Resets:        f.resets,
		JWT:           f.jwt,
		Verifier:      mocks.PrefixVerifier(),
		Emitter:       f.emitter,
		Analytics:     f.analytics,
		Mailer:        f.mailer,
		Avatars:       f.avatars,
		ResetLifetime: time.Hour,
	}, log)
	f.chat = service.NewChatService(service.ChatDeps{
		DB:           db,
		Sessions:     f.sessions,
		Messages:     f.messages,
		Knowledge:    f.kb,
		Emitter:      f.emitter,
		Tracker:      f.tracker,
		Analytics:    f.analytics,
		HistoryLimit: 4,
		SourceLimit:  2,
	}, log)
	f.feedbackSvc = service.NewFeedbackService(db, f.sessions, f.messages, f.feedback, f.analytics, log)
	f.notifications = service.NewNotificationService(f.notes, f.users, log)
	return f
}

// expectTx expects one committed transaction.
func (f *fixture) expectTx() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()
}

// expectRollback expects one rolled back transaction.
func (f *fixture) expectRollback() {
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()
}

// claimsFor returns refresh claims for userID.
func claimsFor(userID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:    userID,
		TokenType: auth.TokenTypeRefresh,
		ID:        uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func ptr[T any](v T) *T {
	return &v
}

var _ service.AccountMailer = (*fakeMailer)(nil)
