package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taverna/internal/models"
	"taverna/internal/storage"
)

var (
	ErrEmptyMessage        = errors.New("message text is empty")
	ErrPlaceholderNotFound = errors.New("pending reply not found")
)

// ConversationOption configures a Conversation
type ConversationOption func(*Conversation)

// WithMaxHistory caps the number of stored messages
func WithMaxHistory(n int) ConversationOption {
	return func(c *Conversation) { c.maxHistory = n }
}

// WithMessageClock overrides message timestamps
func WithMessageClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) { c.now = now }
}

// WithMessageIDs overrides message id generation
func WithMessageIDs(gen func() string) ConversationOption {
	return func(c *Conversation) { c.newID = gen }
}

// Conversation is one guest's chat history, persisted under the
// chat_history key after every change.
type Conversation struct {
	mu         sync.Mutex
	store      storage.Store
	assistant  *Assistant
	messages   []models.ChatMessage
	maxHistory int
	now        func() time.Time
	newID      func() string
}

// NewConversation loads the stored history. An empty, missing or malformed
// history starts over with the welcome message. Placeholders left over from
// an interrupted reply are dropped.
func NewConversation(ctx context.Context, store storage.Store, assistant *Assistant, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		store:      store,
		assistant:  assistant,
		maxHistory: 50,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	var stored []models.ChatMessage
	if err := storage.LoadJSON(ctx, store, storage.KeyChatHistory, &stored); err != nil {
		log.Printf("chat: failed to load history: %v", err)
	}
	for _, m := range stored {
		if !m.IsLoading {
			c.messages = append(c.messages, m)
		}
	}
	if len(c.messages) == 0 {
		c.messages = []models.ChatMessage{c.welcome()}
	}
	return c
}

// Messages returns a copy of the history, oldest first
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ChatMessage(nil), c.messages...)
}

// Begin appends the guest's message and a loading placeholder for the reply
func (c *Conversation) Begin(ctx context.Context, text string) (user, placeholder models.ChatMessage, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return user, placeholder, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user = models.ChatMessage{ID: c.newID(), Sender: models.SenderUser, Text: text, CreatedAt: c.now()}
	placeholder = models.ChatMessage{ID: c.newID(), Sender: models.SenderAI, IsLoading: true, CreatedAt: c.now()}
	c.messages = append(c.messages, user, placeholder)
	c.trimLocked()
	c.persistLocked(ctx)
	return user, placeholder, nil
}

// Resolve fetches the reply for a placeholder created by Begin and replaces
// the placeholder in place, keeping its id.
func (c *Conversation) Resolve(ctx context.Context, placeholderID string) (models.ChatMessage, error) {
	c.mu.Lock()
	idx := c.indexLocked(placeholderID)
	if idx < 0 || !c.messages[idx].IsLoading {
		c.mu.Unlock()
		return models.ChatMessage{}, ErrPlaceholderNotFound
	}
	history, userText := c.promptInputLocked(idx)
	c.mu.Unlock()

	reply := c.assistant.Reply(ctx, history, userText)

	c.mu.Lock()
	defer c.mu.Unlock()
	idx = c.indexLocked(placeholderID)
	if idx < 0 {
		return models.ChatMessage{}, ErrPlaceholderNotFound
	}
	msg := c.messages[idx]
	msg.Text = reply.Text
	msg.ItemCards = reply.Items
	msg.IsLoading = false
	msg.CreatedAt = c.now()
	c.messages[idx] = msg
	c.persistLocked(ctx)
	return msg, nil
}

// Send is Begin followed by Resolve
func (c *Conversation) Send(ctx context.Context, text string) (models.ChatMessage, error) {
	_, placeholder, err := c.Begin(ctx, text)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return c.Resolve(ctx, placeholder.ID)
}

// Clear resets the history to the welcome message
func (c *Conversation) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []models.ChatMessage{c.welcome()}
	c.persistLocked(ctx)
}

// promptInputLocked returns the messages before the user turn that precedes
// idx, and that user turn's text.
func (c *Conversation) promptInputLocked(idx int) ([]models.ChatMessage, string) {
	for i := idx - 1; i >= 0; i-- {
		if c.messages[i].Sender == models.SenderUser {
			return append([]models.ChatMessage(nil), c.messages[:i]...), c.messages[i].Text
		}
	}
	return nil, ""
}

func (c *Conversation) indexLocked(id string) int {
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (c *Conversation) trimLocked() {
	if c.maxHistory > 0 && len(c.messages) > c.maxHistory {
		c.messages = append([]models.ChatMessage(nil), c.messages[len(c.messages)-c.maxHistory:]...)
	}
}

func (c *Conversation) persistLocked(ctx context.Context) {
	if err := storage.SaveJSON(ctx, c.store, storage.KeyChatHistory, c.messages); err != nil {
		log.Printf("chat: failed to save history: %v", err)
	}
}

func (c *Conversation) welcome() models.ChatMessage {
	return models.ChatMessage{ID: c.newID(), Sender: models.SenderAI, Text: WelcomeMessage, CreatedAt: c.now()}
}

// Conversations hands out one Conversation per guest, opening it lazily
type Conversations struct {
	convs *storage.IdleCache[*Conversation]
}

// NewConversations uses open to load a guest's conversation on first use.
// Conversations idle for longer than idleTTL are reopened from history.
func NewConversations(idleTTL time.Duration, open func(ctx context.Context, guest string) *Conversation) *Conversations {
	return &Conversations{convs: storage.NewIdleCache(idleTTL, open)}
}

// For returns guest's conversation
func (r *Conversations) For(ctx context.Context, guest string) *Conversation {
	return r.convs.Get(ctx, guest)
}

// Len returns the number of open conversations
func (r *Conversations) Len() int {
	return r.convs.Len()
}
