package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client using the official openai-go SDK
// (chat completions). Any OpenAI-compatible endpoint works by setting
// BaseURL, e.g. DeepSeek or a local gateway.
type OpenAIClient struct {
	name  string
	model string
	opts  []option.RequestOption
}

// NewOpenAIClient builds a client from settings.
func NewOpenAIClient(cfg Settings) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{name: name, model: cfg.Model, opts: opts}, nil
}

func (c *OpenAIClient) Name() string { return c.name }

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (Result, error) {
	client := openai.NewClient(c.opts...)

	start := time.Now()
	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(defaultMaxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Result{}, classify(c.name, apiErr.StatusCode, err)
		}
		return Result{}, classify(c.name, 0, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, emptyResult(c.name)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Result{}, emptyResult(c.name)
	}
	return Result{
		Provider:   c.name,
		Text:       text,
		Latency:    time.Since(start),
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
