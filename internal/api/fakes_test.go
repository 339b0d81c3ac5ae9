package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colloquyhq/colloquy-api/internal/api/shared"
	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeAccounts implements AccountService and AvatarUploader with function
// fields. Unset fields return zero values.
type fakeAccounts struct {
	RegisterFn      func(ctx context.Context, in service.RegisterInput, meta service.RequestMeta) (*domain.User, auth.TokenPair, error)
	LoginFn         func(ctx context.Context, email, password string, meta service.RequestMeta) (*domain.User, auth.TokenPair, error)
	RefreshFn       func(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	LogoutFn        func(ctx context.Context, userID uuid.UUID, refreshToken string, meta service.RequestMeta) error
	VerifyEmailFn   func(ctx context.Context, token string, meta service.RequestMeta) error
	RequestResetFn  func(ctx context.Context, email string) error
	ConfirmResetFn  func(ctx context.Context, token, password string, meta service.RequestMeta) error
	GetProfileFn    func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfileFn func(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate, meta service.RequestMeta) (*domain.User, error)
	UpdateAvatarFn  func(ctx context.Context, userID uuid.UUID, r io.Reader, meta service.RequestMeta) (*domain.User, error)
}

func (f *fakeAccounts) Register(ctx context.Context, in service.RegisterInput, meta service.RequestMeta) (*domain.User, auth.TokenPair, error) {
	return f.RegisterFn(ctx, in, meta)
}

func (f *fakeAccounts) Login(ctx context.Context, email, password string, meta service.RequestMeta) (*domain.User, auth.TokenPair, error) {
	return f.LoginFn(ctx, email, password, meta)
}

func (f *fakeAccounts) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	return f.RefreshFn(ctx, refreshToken)
}

func (f *fakeAccounts) Logout(ctx context.Context, userID uuid.UUID, refreshToken string, meta service.RequestMeta) error {
	return f.LogoutFn(ctx, userID, refreshToken, meta)
}

func (f *fakeAccounts) VerifyEmail(ctx context.Context, token string, meta service.RequestMeta) error {
	return f.VerifyEmailFn(ctx, token, meta)
}

func (f *fakeAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	return f.RequestResetFn(ctx, email)
}

func (f *fakeAccounts) ConfirmPasswordReset(ctx context.Context, token, password string, meta service.RequestMeta) error {
	return f.ConfirmResetFn(ctx, token, password, meta)
}

func (f *fakeAccounts) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return f.GetProfileFn(ctx, userID)
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, userID uuid.UUID, update domain.ProfileUpdate, meta service.RequestMeta) (*domain.User, error) {
	return f.UpdateProfileFn(ctx, userID, update, meta)
}

func (f *fakeAccounts) UpdateAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, meta service.RequestMeta) (*domain.User, error) {
	return f.UpdateAvatarFn(ctx, userID, r, meta)
}

type fakeChat struct {
	SubmitFn         func(ctx context.Context, in service.QueryInput, meta service.RequestMeta) (*service.QueryResult, error)
	ResponseStatusFn func(ctx context.Context, messageID uuid.UUID) (status.Entry, error)
	HistoryFn        func(ctx context.Context, meta service.RequestMeta) ([]domain.SessionWithMessages, error)
	GetSessionFn     func(ctx context.Context, id uuid.UUID, meta service.RequestMeta) (*domain.SessionWithMessages, error)
	RateMessageFn    func(ctx context.Context, in service.MessageFeedbackInput, meta service.RequestMeta) error
	RateSessionFn    func(ctx context.Context, in service.SessionFeedbackInput, meta service.RequestMeta) (*domain.ChatFeedback, error)
}

func (f *fakeChat) Submit(ctx context.Context, in service.QueryInput, meta service.RequestMeta) (*service.QueryResult, error) {
	return f.SubmitFn(ctx, in, meta)
}

func (f *fakeChat) ResponseStatus(ctx context.Context, messageID uuid.UUID) (status.Entry, error) {
	return f.ResponseStatusFn(ctx, messageID)
}

func (f *fakeChat) History(ctx context.Context, meta service.RequestMeta) ([]domain.SessionWithMessages, error) {
	return f.HistoryFn(ctx, meta)
}

func (f *fakeChat) GetSession(ctx context.Context, id uuid.UUID, meta service.RequestMeta) (*domain.SessionWithMessages, error) {
	return f.GetSessionFn(ctx, id, meta)
}

func (f *fakeChat) RateMessage(ctx context.Context, in service.MessageFeedbackInput, meta service.RequestMeta) error {
	return f.RateMessageFn(ctx, in, meta)
}

func (f *fakeChat) RateSession(ctx context.Context, in service.SessionFeedbackInput, meta service.RequestMeta) (*domain.ChatFeedback, error) {
	return f.RateSessionFn(ctx, in, meta)
}

// jsonRequest builds a request with body encoded as JSON.
func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser attributes req to userID.
func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(shared.WithUserID(req.Context(), userID))
}

// decodeBody decodes the recorder body into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func testUser() *domain.User {
	return &domain.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		Username: "ada",
		IsActive: true,
	}
}

func jsonUnmarshal(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

func stringsReader(s string) io.Reader {
	return bytes.NewBufferString(s)
}
