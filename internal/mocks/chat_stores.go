package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/colloquyhq/colloquy-api/internal/domain"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/google/uuid"
)

// MockChatSessionStore is an in-memory store.ChatSessionStore.
type MockChatSessionStore struct {
	// CreateErr and IncrementErr make the matching calls fail when set.
	CreateErr    error
	IncrementErr error

	mu       sync.Mutex
	Sessions map[uuid.UUID]*domain.ChatSession
	// Messages, when set, is used by RefreshAverageRating.
	Messages *MockChatMessageStore
}

// NewMockChatSessionStore creates an empty session store.
func NewMockChatSessionStore() *MockChatSessionStore {
	return &MockChatSessionStore{Sessions: make(map[uuid.UUID]*domain.ChatSession)}
}

// Create implements store.ChatSessionStore.
func (m *MockChatSessionStore) Create(_ context.Context, s *domain.ChatSession) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.Sessions[s.ID] = &cp
	return nil
}

// GetByID implements store.ChatSessionStore.
func (m *MockChatSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockChatSessionStore) list(match func(*domain.ChatSession) bool) []domain.ChatSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ChatSession{}
	for _, s := range m.Sessions {
		if match(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ListByUser implements store.ChatSessionStore.
func (m *MockChatSessionStore) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.ChatSession, error) {
	return m.list(func(s *domain.ChatSession) bool { return s.UserID != nil && *s.UserID == userID }), nil
}

// ListBySessionKey implements store.ChatSessionStore.
func (m *MockChatSessionStore) ListBySessionKey(_ context.Context, key string) ([]domain.ChatSession, error) {
	return m.list(func(s *domain.ChatSession) bool { return s.UserID == nil && s.SessionKey == key }), nil
}

// IncrementCounters implements store.ChatSessionStore.
func (m *MockChatSessionStore) IncrementCounters(_ context.Context, id uuid.UUID, messages, tokens int) error {
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	s.MessageCount += messages
	s.TotalTokensUsed += tokens
	return nil
}

// RefreshAverageRating implements store.ChatSessionStore.
func (m *MockChatSessionStore) RefreshAverageRating(ctx context.Context, id uuid.UUID) error {
	var msgs []domain.ChatMessage
	if m.Messages != nil {
		msgs, _ = m.Messages.ListBySession(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	var sum, n int
	for _, msg := range msgs {
		if msg.Rating != nil {
			sum += *msg.Rating
			n++
		}
	}
	if n == 0 {
		s.AverageRating = nil
		return nil
	}
	avg := float64(sum) / float64(n)
	s.AverageRating = &avg
	return nil
}

// WithTx implements store.ChatSessionStore. The mock ignores transactions.
func (m *MockChatSessionStore) WithTx(*sql.Tx) store.ChatSessionStore {
	return m
}

// MockChatMessageStore is an in-memory store.ChatMessageStore.
type MockChatMessageStore struct {
	CreateErr      error
	CreateReplyErr error

	mu       sync.Mutex
	Messages []*domain.ChatMessage
}

// NewMockChatMessageStore creates an empty message store.
func NewMockChatMessageStore() *MockChatMessageStore {
	return &MockChatMessageStore{}
}

// Create implements store.ChatMessageStore.
func (m *MockChatMessageStore) Create(_ context.Context, msg *domain.ChatMessage) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.Messages = append(m.Messages, &cp)
	return nil
}

// CreateReply implements store.ChatMessageStore.
func (m *MockChatMessageStore) CreateReply(_ context.Context, msg *domain.ChatMessage) (bool, error) {
	if m.CreateReplyErr != nil {
		return false, m.CreateReplyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Messages {
		if existing.ReplyToID != nil && msg.ReplyToID != nil && *existing.ReplyToID == *msg.ReplyToID {
			return false, nil
		}
	}
	cp := *msg
	m.Messages = append(m.Messages, &cp)
	return true, nil
}

// GetByID implements store.ChatMessageStore.
func (m *MockChatMessageStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ChatMessage, error) {
	return m.find(func(msg *domain.ChatMessage) bool { return msg.ID == id })
}

// GetReplyTo implements store.ChatMessageStore.
func (m *MockChatMessageStore) GetReplyTo(_ context.Context, userMessageID uuid.UUID) (*domain.ChatMessage, error) {
	return m.find(func(msg *domain.ChatMessage) bool {
		return msg.ReplyToID != nil && *msg.ReplyToID == userMessageID
	})
}

func (m *MockChatMessageStore) find(match func(*domain.ChatMessage) bool) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if match(msg) {
			cp := *msg
			return &cp, nil
		}
	}
	return nil, store.ErrMessageNotFound
}

// ListBySession implements store.ChatMessageStore.
func (m *MockChatMessageStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ChatMessage{}
	for _, msg := range m.Messages {
		if msg.SessionID == sessionID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

// ListRecent implements store.ChatMessageStore.
func (m *MockChatMessageStore) ListRecent(
	ctx context.Context,
	sessionID, before uuid.UUID,
	limit int,
) ([]domain.ChatMessage, error) {
	all, _ := m.ListBySession(ctx, sessionID)
	var earlier []domain.ChatMessage
	for _, msg := range all {
		if msg.ID == before {
			break
		}
		earlier = append(earlier, msg)
	}
	if len(earlier) > limit {
		earlier = earlier[len(earlier)-limit:]
	}
	return earlier, nil
}

// UpdateFeedback implements store.ChatMessageStore.
func (m *MockChatMessageStore) UpdateFeedback(_ context.Context, id uuid.UUID, rating int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Messages {
		if msg.ID == id {
			r := rating
			msg.Rating = &r
			msg.FeedbackComment = comment
			return nil
		}
	}
	return store.ErrMessageNotFound
}

// WithTx implements store.ChatMessageStore. The mock ignores transactions.
func (m *MockChatMessageStore) WithTx(*sql.Tx) store.ChatMessageStore {
	return m
}

// MockChatFeedbackStore is an in-memory store.ChatFeedbackStore.
type MockChatFeedbackStore struct {
	mu       sync.Mutex
	Feedback []*domain.ChatFeedback
}

// Create implements store.ChatFeedbackStore.
func (m *MockChatFeedbackStore) Create(_ context.Context, fb *domain.ChatFeedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Feedback = append(m.Feedback, fb)
	return nil
}

// WithTx implements store.ChatFeedbackStore.
func (m *MockChatFeedbackStore) WithTx(*sql.Tx) store.ChatFeedbackStore {
	return m
}

// MockKnowledgeStore is an in-memory store.KnowledgeStore that matches
// entries whose title or content contains a query word.
type MockKnowledgeStore struct {
	SearchErr error

	mu      sync.Mutex
	Entries []domain.KnowledgeEntry
}

// Create implements store.KnowledgeStore.
func (m *MockKnowledgeStore) Create(_ context.Context, e *domain.KnowledgeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, *e)
	return nil
}

// Search implements store.KnowledgeStore.
func (m *MockKnowledgeStore) Search(_ context.Context, query string, limit int) ([]domain.KnowledgeEntry, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	words := strings.Fields(strings.ToLower(query))
	var out []domain.KnowledgeEntry
	for _, e := range m.Entries {
		text := strings.ToLower(e.Title + " " + e.Content)
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, e)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
