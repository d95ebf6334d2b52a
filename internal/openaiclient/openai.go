// Package openaiclient is a chat-completion Generator backed by the OpenAI
// API or any server speaking the same protocol.
package openaiclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const ProviderName = "openai"

const maxCompletionTokens = 800

type Client struct {
	client *openai.Client
	model  string
}

type Option func(*openai.ClientConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) { c.BaseURL = strings.TrimRight(url, "/") }
}

func NewClient(apiKey, model string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxCompletionTokens: maxCompletionTokens,
		Temperature:         0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty OpenAI response")
	}
	return content, nil
}
