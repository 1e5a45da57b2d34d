package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"botmesero-backend/internal/models"
)

var ErrNoChoices = errors.New("completion returned no choices")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Client sends the system prompt plus a chat's history to an OpenAI-compatible
// chat-completion endpoint.
type Client struct {
	api          *openai.Client
	model        string
	temperature  float32
	maxTokens    int
	timeout      time.Duration
	systemPrompt string
}

func NewClient(cfg Config, systemPrompt string) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &Client{
		api:          openai.NewClientWithConfig(oc),
		model:        model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		timeout:      cfg.Timeout,
		systemPrompt: systemPrompt,
	}
}

// Complete returns the first choice's content, trimmed. Transport errors,
// API errors and empty responses are returned to the caller unchanged.
func (c *Client) Complete(ctx context.Context, history []models.Turn) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages:    BuildMessages(c.systemPrompt, history),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildMessages prepends the system turn to history. System turns found in
// history are dropped so the prompt carries exactly one.
func BuildMessages(systemPrompt string, history []models.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, t := range history {
		role := string(t.Role)
		switch t.Role {
		case models.RoleSystem:
			continue
		case "":
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return out
}
