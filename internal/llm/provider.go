// Package llm connects the chat assistant to a hosted or local language model.
package llm

import (
	"context"
	"errors"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrMissingCredentials = errors.New("llm credentials missing")
	ErrEmptyResponse      = errors.New("empty response from model")
	ErrUnknownProvider    = errors.New("unknown llm provider")
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Options are the generation settings shared by every provider
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}
