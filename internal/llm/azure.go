package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureOpenAIProvider implements Provider for an Azure OpenAI deployment
type AzureOpenAIProvider struct {
	client     *azopenai.Client
	deployment string
	opts       Options
}

// NewAzureOpenAI creates a client for the given endpoint and deployment
func NewAzureOpenAI(endpoint, apiKey, deployment string, opts Options) (*AzureOpenAIProvider, error) {
	if endpoint == "" || apiKey == "" || deployment == "" {
		return nil, fmt.Errorf("%w: set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT_NAME", ErrMissingCredentials)
	}

	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}
	return &AzureOpenAIProvider{client: client, deployment: deployment, opts: opts}, nil
}

// Name returns the provider name
func (p *AzureOpenAIProvider) Name() string {
	return "azure_openai"
}

// Complete sends the conversation as user turns. System and assistant turns
// are labelled inline.
func (p *AzureOpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	chatMessages := make([]azopenai.ChatRequestMessageClassification, len(messages))
	for i, msg := range messages {
		text := msg.Content
		if msg.Role != RoleUser && msg.Role != "" {
			text = strings.ToUpper(msg.Role) + ": " + text
		}
		chatMessages[i] = &azopenai.ChatRequestUserMessage{
			Content: azopenai.NewChatRequestUserMessageContent(text),
		}
	}

	opts := azopenai.ChatCompletionsOptions{
		Messages:       chatMessages,
		Temperature:    to.Ptr(float32(p.opts.Temperature)),
		DeploymentName: to.Ptr(p.deployment),
	}
	if p.opts.MaxTokens > 0 {
		opts.MaxTokens = to.Ptr(int32(p.opts.MaxTokens))
	}

	resp, err := p.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return "", fmt.Errorf("Azure OpenAI completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: azure_openai", ErrEmptyResponse)
	}
	return *resp.Choices[0].Message.Content, nil
}
