package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"

	// reasoner 模型需要更多 tokens 来输出推理过程
	reasonerMinTokens = 8000
)

// DeepSeekGateway drives the DeepSeek chat-completion API through the eino
// chat model components. Chat models go through the OpenAI-compatible
// component; reasoner models go through the dedicated DeepSeek component so
// the reasoning content is available.
type DeepSeekGateway struct {
	model    model.BaseChatModel
	name     string
	reasoner bool
}

// DeepSeekConfig is the connection part of the gateway; prompts never live here.
type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewDeepSeekGateway builds the live gateway.
func NewDeepSeekGateway(ctx context.Context, cfg DeepSeekConfig) (*DeepSeekGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	reasoner := strings.Contains(strings.ToLower(modelName), "reasoner")
	if reasoner {
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   baseURL,
			Model:     modelName,
			MaxTokens: reasonerMinTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek reasoner model: %w", err)
		}
		return &DeepSeekGateway{model: chatModel, name: modelName, reasoner: true}, nil
	}

	maxTokens := 8192
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   baseURL,
		APIKey:    cfg.APIKey,
		Model:     modelName,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create deepseek chat model: %w", err)
	}
	return &DeepSeekGateway{model: chatModel, name: modelName}, nil
}

// Generate sends the conversation and returns the response text. A failed
// call surfaces as *CallError, never as an empty string.
func (g *DeepSeekGateway) Generate(ctx context.Context, messages []*schema.Message, opts GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if g.reasoner && maxTokens < reasonerMinTokens {
		maxTokens = reasonerMinTokens
	}

	resp, err := g.model.Generate(ctx, messages,
		model.WithTemperature(opts.Temperature),
		model.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", &CallError{Provider: g.name, Err: err}
	}
	if resp == nil {
		return "", &CallError{Provider: g.name, Err: fmt.Errorf("empty response")}
	}

	var sb strings.Builder
	if reasoning, ok := deepseek.GetReasoningContent(resp); ok && reasoning != "" {
		sb.WriteString("【推理过程】\n")
		sb.WriteString(reasoning)
		sb.WriteString("\n\n")
	}
	sb.WriteString(resp.Content)

	if sb.Len() == 0 {
		return "", &CallError{Provider: g.name, Err: fmt.Errorf("empty response content")}
	}
	return sb.String(), nil
}
