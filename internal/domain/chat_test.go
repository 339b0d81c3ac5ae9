package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseOptions(t *testing.T) {
	opts, err := ParseResponseOptions("", "", "")
	require.NoError(t, err)
	assert.Equal(t, ResponseOptions{Audience: AudienceGeneral, Depth: DepthMedium, Tone: ToneProfessional}, opts)

	opts, err = ParseResponseOptions("technical", "detailed", "casual")
	require.NoError(t, err)
	assert.Equal(t, AudienceTechnical, opts.Audience)
	assert.Equal(t, DepthDetailed, opts.Depth)
	assert.Equal(t, ToneCasual, opts.Tone)

	for _, bad := range [][3]string{{"aliens", "", ""}, {"", "endless", ""}, {"", "", "grumpy"}} {
		_, err := ParseResponseOptions(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidOption, "options %v", bad)
	}
}

func TestChatSessionOwnedBy(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	userSession, err := NewChatSession(&owner, "key-1", AudienceGeneral, ToneProfessional)
	require.NoError(t, err)
	assert.True(t, userSession.OwnedBy(&owner, ""))
	assert.False(t, userSession.OwnedBy(&other, "key-1"))
	assert.False(t, userSession.OwnedBy(nil, "key-1"), "a user session is never reachable anonymously")

	anon, err := NewChatSession(nil, "key-2", AudienceGeneral, ToneProfessional)
	require.NoError(t, err)
	assert.True(t, anon.OwnedBy(nil, "key-2"))
	assert.False(t, anon.OwnedBy(nil, "key-3"))
	assert.False(t, anon.OwnedBy(nil, ""))
	assert.False(t, anon.OwnedBy(&owner, "key-2"))
}

func TestNewChatSessionRequiresOwner(t *testing.T) {
	_, err := NewChatSession(nil, "", AudienceGeneral, ToneProfessional)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewUserMessage(t *testing.T) {
	sessionID := uuid.New()

	msg, err := NewUserMessage(sessionID, "  what is go?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "what is go?", msg.Content)
	assert.True(t, msg.IsFromUser)
	assert.Nil(t, msg.ReplyToID)

	_, err = NewUserMessage(sessionID, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = NewUserMessage(sessionID, strings.Repeat("é", MaxQueryLength+1), nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewUserMessage(sessionID, strings.Repeat("é", MaxQueryLength), nil)
	assert.NoError(t, err, "length is counted in characters, not bytes")
}

func TestNewAIReply(t *testing.T) {
	sessionID, userMsg := uuid.New(), uuid.New()

	reply, err := NewAIReply(sessionID, userMsg, FallbackReply)
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)
	assert.Equal(t, userMsg, *reply.ReplyToID)
	assert.False(t, reply.IsFromUser)

	_, err = NewAIReply(sessionID, userMsg, "")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestChatFeedbackValidation(t *testing.T) {
	sessionID := uuid.New()
	six, three := 6, 3

	_, err := NewChatFeedback(sessionID, nil, 5, &three, &three, nil, "great")
	assert.NoError(t, err)

	_, err = NewChatFeedback(sessionID, nil, 0, nil, nil, nil, "")
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = NewChatFeedback(sessionID, nil, 4, &six, nil, nil, "")
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = NewChatFeedback(uuid.Nil, nil, 4, nil, nil, nil, "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestWelcomeNotification(t *testing.T) {
	u := &User{ID: uuid.New(), Username: "ada"}

	n, err := WelcomeNotification(u)
	require.NoError(t, err)
	assert.Equal(t, NotificationWelcome, n.Kind)
	assert.Contains(t, n.Body, "ada")
	assert.False(t, n.IsRead)
}
