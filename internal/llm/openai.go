package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIOptions 初始化 OpenAI 生成器的配置
type OpenAIOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIGenerator 基于 OpenAI Chat Completions 的文本生成器，
// 也可通过 BaseURL 指向任意兼容 OpenAI 协议的服务。
type OpenAIGenerator struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIGenerator 创建 OpenAI 生成器
func NewOpenAIGenerator(opts OpenAIOptions) *OpenAIGenerator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: opts.MaxTokens,
	}
}

// Generate 调用 Chat Completions 生成回答
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	} else if g.maxTokens > 0 {
		chatReq.MaxTokens = g.maxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", classifyTransportError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("生成结果为空")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Name 后端标识
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Model 当前模型名
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Healthy 通过模型列表接口探测服务可达性
func (g *OpenAIGenerator) Healthy(ctx context.Context) bool {
	_, err := g.client.ListModels(ctx)
	return err == nil
}
