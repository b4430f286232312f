// Package openai wraps Azure OpenAI embeddings and chat completions behind
// the interfaces the RAG pipeline consumes.
package openai

import (
	"context"
	"errors"
	"time"

	"github.com/dobbyjj/codeme/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// embedTimeout bounds a single embedding call.
	embedTimeout = 30 * time.Second
	// chatTimeout bounds a single chat completion call. Longer than the
	// embedding timeout since generation dominates request latency.
	chatTimeout = 60 * time.Second
)

// Config holds Azure OpenAI connection settings.
type Config struct {
	Endpoint        string
	APIKey          string
	EmbedDeployment string
	ChatDeployment  string
	APIVersion      string
}

// Client calls Azure OpenAI deployments for embeddings and chat completions.
// Missing configuration is reported per call so the embedding and chat steps
// surface distinct configuration errors.
type Client struct {
	api *openai.Client
	cfg Config
}

// NewClient creates a Client. The client is usable even when partially
// configured; calls against unset deployments fail with a configuration error.
func NewClient(cfg Config) *Client {
	azureCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		azureCfg.APIVersion = cfg.APIVersion
	}
	// Model names passed by this client are already deployment names.
	azureCfg.AzureModelMapperFunc = func(model string) string { return model }

	return &Client{
		api: openai.NewClientWithConfig(azureCfg),
		cfg: cfg,
	}
}

// EmbedQuery returns the embedding vector for the given text.
// Exactly one outbound call per invocation; no retries.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" || c.cfg.EmbedDeployment == "" {
		return nil, domain.NewConfigurationError(
			"Azure OpenAI embedding configuration is missing. Set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_EMBED_DEPLOYMENT.")
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbedDeployment),
	})
	if err != nil {
		return nil, upstreamError("Azure OpenAI embedding", err)
	}

	if len(resp.Data) == 0 {
		return nil, domain.NewUpstreamError("Azure OpenAI embedding", 0, "response missing embedding data")
	}

	return resp.Data[0].Embedding, nil
}

// Complete runs one chat completion with a system and user message and
// returns the first choice's content verbatim.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" || c.cfg.ChatDeployment == "" {
		return "", domain.NewConfigurationError(
			"Azure OpenAI chat configuration is missing. Set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY, AZURE_OPENAI_CHAT_DEPLOYMENT.")
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatDeployment,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", upstreamError("Azure OpenAI chat", err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewUpstreamError("Azure OpenAI chat", 0, "response missing choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// upstreamError maps go-openai errors to the gateway-class domain error,
// keeping the upstream status and body in the message.
func upstreamError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewUpstreamError(provider, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewUpstreamError(provider, reqErr.HTTPStatusCode, reqErr.Error())
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, provider+" request failed", err)
}
