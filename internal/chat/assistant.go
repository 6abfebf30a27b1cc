package chat

import (
	"context"
	"errors"
	"log"

	"taverna/internal/models"
)

// Guest-facing assistant messages
const (
	WelcomeMessage = "Yia sou! I'm the Taverna assistant. Ask me about our dishes, dietary options or what to order tonight and I'll point you to the menu."
	TroubleMessage = "I'm having trouble connecting right now. Please try again in a moment."
)

// ErrNoCompleter is returned when the assistant has no completion service
var ErrNoCompleter = errors.New("chat completion service not configured")

// Completer is a black-box text completion service
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Reply is one resolved assistant answer
type Reply struct {
	Text  string
	Items []models.MenuItem
	// Failed is set when the completion service errored and Text is the
	// trouble message.
	Failed bool
}

// Assistant asks the completion service for a reply and parses it
type Assistant struct {
	completer     Completer
	parser        *Parser
	catalog       string
	promptHistory int
}

// NewAssistant creates an assistant. completer may be nil, in which case
// every reply is the trouble message.
func NewAssistant(completer Completer, parser *Parser, catalogListing string, promptHistory int) *Assistant {
	return &Assistant{
		completer:     completer,
		parser:        parser,
		catalog:       catalogListing,
		promptHistory: promptHistory,
	}
}

// Reply answers userText given the earlier conversation. Completion
// failures never surface as errors; they produce the trouble message.
func (a *Assistant) Reply(ctx context.Context, history []models.ChatMessage, userText string) Reply {
	if a.completer == nil {
		log.Printf("chat: %v", ErrNoCompleter)
		return Reply{Text: TroubleMessage, Failed: true}
	}
	if a.promptHistory > 0 && len(history) > a.promptHistory {
		history = history[len(history)-a.promptHistory:]
	}

	raw, err := a.completer.Complete(ctx, BuildPrompt(history, a.catalog, userText))
	if err != nil {
		log.Printf("chat: completion failed: %v", err)
		return Reply{Text: TroubleMessage, Failed: true}
	}

	parsed := a.parser.Parse(raw)
	return Reply{Text: parsed.DisplayText, Items: parsed.Items}
}
