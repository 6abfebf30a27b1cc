package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"taverna/internal/menu"
	"taverna/internal/models"
	"taverna/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newAssistant(t *testing.T, c Completer) *Assistant {
	t.Helper()
	cat, err := menu.Default()
	require.NoError(t, err)
	return NewAssistant(c, NewParser(cat.Items()), cat.PromptListing(), 10)
}

func counterIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
}

func newConversation(t *testing.T, store storage.Store, c Completer, opts ...ConversationOption) *Conversation {
	t.Helper()
	opts = append([]ConversationOption{WithMessageIDs(counterIDs())}, opts...)
	return NewConversation(context.Background(), store, newAssistant(t, c), opts...)
}

func TestConversation_StartsWithWelcome(t *testing.T) {
	conv := newConversation(t, storage.NewMemoryStore(), nil)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderAI, msgs[0].Sender)
	assert.Equal(t, WelcomeMessage, msgs[0].Text)
}

func TestConversation_SendReplacesPlaceholderInPlace(t *testing.T) {
	ctx := context.Background()
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Guest: Something vegetarian?") && strings.Contains(p, "[ITEM_IDS:")
	})).Return("Try the Greek Salad! [ITEM_IDS:4]", nil).Once()

	conv := newConversation(t, storage.NewMemoryStore(), completer)
	_, placeholder, err := conv.Begin(ctx, "Something vegetarian?")
	require.NoError(t, err)
	assert.True(t, placeholder.IsLoading)
	assert.Len(t, conv.Messages(), 3)

	reply, err := conv.Resolve(ctx, placeholder.ID)
	require.NoError(t, err)
	completer.AssertExpectations(t)

	msgs := conv.Messages()
	require.Len(t, msgs, 3)
	last := msgs[2]
	assert.Equal(t, placeholder.ID, last.ID)
	assert.Equal(t, reply, last)
	assert.False(t, last.IsLoading)
	assert.Equal(t, "Try the Greek Salad!", last.Text)
	require.Len(t, last.ItemCards, 1)
	assert.Equal(t, 4, last.ItemCards[0].ID)
}

func TestConversation_CompletionFailureShowsTroubleMessage(t *testing.T) {
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("502 bad gateway"))

	conv := newConversation(t, storage.NewMemoryStore(), completer)
	reply, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, TroubleMessage, reply.Text)
	assert.Nil(t, reply.ItemCards)
	assert.False(t, reply.IsLoading)
	assert.Len(t, conv.Messages(), 3)
}

func TestConversation_WithoutCompleter(t *testing.T) {
	conv := newConversation(t, storage.NewMemoryStore(), nil)
	reply, err := conv.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, TroubleMessage, reply.Text)
}

func TestConversation_PromptCarriesHistory(t *testing.T) {
	ctx := context.Background()
	var prompts []string
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { prompts = append(prompts, args.String(1)) }).
		Return("Sure.", nil)

	conv := newConversation(t, storage.NewMemoryStore(), completer)
	_, err := conv.Send(ctx, "first question")
	require.NoError(t, err)
	_, err = conv.Send(ctx, "second question")
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "Host: "+WelcomeMessage)
	assert.Contains(t, prompts[0], "Guest: first question")
	assert.NotContains(t, prompts[0], "second question")

	history := strings.Split(prompts[1], "CONVERSATION SO FAR:")[1]
	assert.Contains(t, history, "Guest: first question\nHost: Sure.\n")
	assert.Contains(t, prompts[1], "Guest: second question")
}

func TestConversation_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	completer := new(mockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("Opa! [ITEM_IDS:9]", nil)

	conv := newConversation(t, store, completer)
	_, err := conv.Send(ctx, "dessert?")
	require.NoError(t, err)
	_, _, err = conv.Begin(ctx, "and coffee?")
	require.NoError(t, err)

	reopened := newConversation(t, store, completer)
	msgs := reopened.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Opa!", msgs[2].Text)
	assert.Equal(t, "and coffee?", msgs[3].Text)
	for _, m := range msgs {
		assert.False(t, m.IsLoading)
	}
}

func TestConversation_MalformedHistoryStartsOver(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), storage.KeyChatHistory, "{not json"))

	conv := newConversation(t, store, nil)
	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, WelcomeMessage, msgs[0].Text)
}

func TestConversation_Clear(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	conv := newConversation(t, store, nil)
	_, err := conv.Send(ctx, "hi")
	require.NoError(t, err)

	conv.Clear(ctx)
	require.Len(t, conv.Messages(), 1)

	reopened := newConversation(t, store, nil)
	assert.Len(t, reopened.Messages(), 1)
}

func TestConversation_HistoryIsCapped(t *testing.T) {
	ctx := context.Background()
	conv := newConversation(t, storage.NewMemoryStore(), nil, WithMaxHistory(4))
	for i := 0; i < 5; i++ {
		_, err := conv.Send(ctx, fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}
	msgs := conv.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "q4", msgs[2].Text)
}

func TestConversation_Errors(t *testing.T) {
	conv := newConversation(t, storage.NewMemoryStore(), nil)

	_, _, err := conv.Begin(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = conv.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlaceholderNotFound)

	welcome := conv.Messages()[0]
	_, err = conv.Resolve(context.Background(), welcome.ID)
	assert.ErrorIs(t, err, ErrPlaceholderNotFound)
}

func TestConversation_MessageClock(t *testing.T) {
	at := time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)
	conv := newConversation(t, storage.NewMemoryStore(), nil, WithMessageClock(func() time.Time { return at }))
	reply, err := conv.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, at, reply.CreatedAt)
}

func TestConversations_OneInstancePerGuest(t *testing.T) {
	base := storage.NewMemoryStore()
	opened := 0
	reg := NewConversations(time.Hour, func(ctx context.Context, guest string) *Conversation {
		opened++
		return NewConversation(ctx, storage.Namespace(base, guest), newAssistant(t, nil))
	})

	a := reg.For(context.Background(), "a")
	assert.Same(t, a, reg.For(context.Background(), "a"))
	assert.NotSame(t, a, reg.For(context.Background(), "b"))
	assert.Equal(t, 2, opened)
}

func TestConversations_IdleConversationReopensWithHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	base := storage.NewMemoryStore()
	reg := NewConversations(30*time.Minute, func(ctx context.Context, guest string) *Conversation {
		return NewConversation(ctx, storage.Namespace(base, guest), newAssistant(t, nil))
	})
	reg.convs.SetClock(func() time.Time { return now })

	before := reg.For(ctx, "a")
	_, err := before.Send(ctx, "hello")
	require.NoError(t, err)
	sent := len(before.Messages())

	now = now.Add(time.Hour)
	assert.Equal(t, 0, reg.Len())

	after := reg.For(ctx, "a")
	assert.NotSame(t, before, after)
	assert.Len(t, after.Messages(), sent)
}

func TestBuildPrompt(t *testing.T) {
	history := []models.ChatMessage{
		{Sender: models.SenderAI, Text: WelcomeMessage},
		{Sender: models.SenderUser, Text: "gluten free?"},
		{Sender: models.SenderAI, IsLoading: true},
	}
	p := BuildPrompt(history, "4 | Greek Salad | salad | $12.00 | fresh\n", "what else?")

	assert.Contains(t, p, "4 | Greek Salad")
	assert.Contains(t, p, "Host: "+WelcomeMessage)
	assert.Contains(t, p, "Guest: gluten free?")
	assert.Contains(t, p, "Guest: what else?")
	assert.Contains(t, p, "[ITEM_IDS:")
	assert.Equal(t, 1, strings.Count(p, "Host:"))
}
