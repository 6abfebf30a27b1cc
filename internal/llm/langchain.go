package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	GitHubModelsURL  = "https://models.inference.ai.azure.com"
	DefaultOllamaURL = "http://localhost:11434"
)

// LangChainProvider runs completions through any langchaingo model
type LangChainProvider struct {
	name  string
	model llms.Model
	opts  Options
}

// NewLangChainProvider wraps an already constructed langchaingo model
func NewLangChainProvider(name string, model llms.Model, opts Options) *LangChainProvider {
	return &LangChainProvider{name: name, model: model, opts: opts}
}

// NewOpenAI creates a provider backed by the OpenAI API
func NewOpenAI(apiKey, baseURL string, opts Options) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY or llm.api_key is required for openai", ErrMissingCredentials)
	}
	clientOpts := []openai.Option{openai.WithToken(apiKey)}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return NewLangChainProvider("openai", client, opts), nil
}

// NewGitHubModels creates a provider for GitHub Models, which speaks the
// OpenAI protocol
func NewGitHubModels(token, baseURL string, opts Options) (*LangChainProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN is required for GitHub Models", ErrMissingCredentials)
	}
	if baseURL == "" {
		baseURL = GitHubModelsURL
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
	}
	if opts.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(opts.Model))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Models client: %w", err)
	}
	return NewLangChainProvider("github_models", client, opts), nil
}

// NewOllama creates a provider for a local Ollama server
func NewOllama(serverURL string, opts Options) (*LangChainProvider, error) {
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}
	clientOpts := []ollama.Option{ollama.WithServerURL(serverURL)}
	if opts.Model != "" {
		clientOpts = append(clientOpts, ollama.WithModel(opts.Model))
	}
	client, err := ollama.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	return NewLangChainProvider("ollama", client, opts), nil
}

// Name returns the provider name
func (p *LangChainProvider) Name() string {
	return p.name
}

// Complete implements Provider
func (p *LangChainProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		default:
			msgType = llms.ChatMessageTypeHuman
		}
		content[i] = llms.TextParts(msgType, msg.Content)
	}

	var callOpts []llms.CallOption
	if p.opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(p.opts.Model))
	}
	if p.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(p.opts.MaxTokens))
	}
	callOpts = append(callOpts, llms.WithTemperature(p.opts.Temperature))

	resp, err := p.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyResponse, p.name)
	}
	return resp.Choices[0].Content, nil
}
