package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"tickrx/internal/logger"
)

type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

type openAICompleter struct {
	model   chatModel
	timeout time.Duration
	log     *logger.Logger
}

func newOpenAI(ctx context.Context, cfg Config, log *logger.Logger) (*openAICompleter, error) {
	maxTokens := cfg.MaxTokens
	model, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: cfg.APIVersion,
		Timeout:    cfg.Timeout,
		MaxTokens:  &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init openai chat model: %w", err)
	}
	return &openAICompleter{model: model, timeout: cfg.Timeout, log: log}, nil
}

func (c *openAICompleter) Provider() string {
	return "openai"
}

func (c *openAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	opts := []einomodel.Option{einomodel.WithTemperature(req.Temperature)}
	if req.JSON {
		opts = append(opts, openai.WithExtraFields(map[string]any{
			"response_format": map[string]string{"type": string(openai.ChatCompletionResponseFormatTypeJSONObject)},
		}))
	}

	resp, err := c.model.Generate(ctx, messages, opts...)
	if err != nil {
		c.logError(err)
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("openai generate: empty response")
	}
	return strings.TrimSpace(resp.Content), nil
}

func (c *openAICompleter) logError(err error) {
	apiErr := &openai.APIError{}
	if errors.As(err, &apiErr) {
		c.log.WithFields(map[string]any{
			"status":  apiErr.HTTPStatusCode,
			"message": Clip(apiErr.Message, 300),
		}).Warn("llm api error")
		return
	}
	c.log.WithError(err).Warn("llm error")
}
