package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taverna/internal/config"
)

// New builds the provider selected by cfg.Provider. "none" returns a nil
// provider and no error.
func New(cfg config.LLMConfig) (Provider, error) {
	opts := Options{Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		log.Printf("llm: no provider configured, chat assistant disabled")
		return nil, nil
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL, opts)
	case "github_models":
		return NewGitHubModels(cfg.APIKey, cfg.BaseURL, opts)
	case "ollama":
		return NewOllama(cfg.BaseURL, opts)
	case "azure_openai":
		return NewAzureOpenAI(cfg.Azure.Endpoint, cfg.Azure.APIKey, cfg.Azure.Deployment, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// PromptCompleter sends a single prompt to a Provider as one user message.
// It satisfies chat.Completer.
type PromptCompleter struct {
	Provider Provider
	Timeout  time.Duration
	// Observe, when set, is called after every completion
	Observe func(provider string, took time.Duration, err error)
}

// Complete implements chat.Completer
func (c *PromptCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.Provider.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if c.Observe != nil {
		c.Observe(c.Provider.Name(), time.Since(start), err)
	}
	return out, err
}
