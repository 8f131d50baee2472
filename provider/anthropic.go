package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client using the official Anthropic SDK
// (messages API).
type AnthropicClient struct {
	name   string
	model  string
	client anthropic.Client
}

// NewAnthropicClient builds a client from settings.
func NewAnthropicClient(cfg Settings) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("anthropic model is required")
	}
	name := cfg.Provider
	if name == "" {
		name = "anthropic"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		name:   name,
		model:  cfg.Model,
		client: anthropic.NewClient(opts...),
	}, nil
}

func (c *AnthropicClient) Name() string { return c.name }

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (Result, error) {
	start := time.Now()
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   defaultMaxTokens,
		Temperature: anthropic.Float(defaultTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Result{}, classify(c.name, apiErr.StatusCode, err)
		}
		return Result{}, classify(c.name, 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return Result{}, emptyResult(c.name)
	}
	return Result{
		Provider:   c.name,
		Text:       text,
		Latency:    time.Since(start),
		TokensUsed: msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}, nil
}
