package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"AnalystScanner/internal/config"
	"AnalystScanner/internal/ports"
)

// completer is the subset of the OpenAI client the adapter relies on.
type completer interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGPTClient implements ports.ChatClient backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	client       completer
	model        string
	apiKey       string
	systemPrompt string
}

var _ ports.ChatClient = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration; Endpoint is the API base URL.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	transportCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		transportCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	transportCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return &ChatGPTClient{
		client:       openai.NewClientWithConfig(transportCfg),
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Comment posts the JSON list of new announcements and returns the model's commentary.
func (c *ChatGPTClient) Comment(ctx context.Context, payload []byte) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: safePrompt(c.systemPrompt)},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chatgpt completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You receive a JSON list of analyst price target changes. Summarize the notable moves in a few lines."
	}
	return prompt
}
