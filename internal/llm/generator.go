// Package llm 封装文本生成后端（Ollama、OpenAI），为上层 RAG 管线
// 提供统一的 Generator 接口与面向用户的错误文案。
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Request 一次文本生成请求
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Generator 文本生成后端
type Generator interface {
	// Generate 根据提示词生成回答
	Generate(ctx context.Context, req Request) (string, error)
	// Name 后端标识（ollama、openai）
	Name() string
	// Model 当前使用的模型名
	Model() string
	// Healthy 后端是否可达
	Healthy(ctx context.Context) bool
}

// ErrTimeout 生成请求超时
var ErrTimeout = errors.New("llm 请求超时")

// ErrConnect 无法连接生成后端
var ErrConnect = errors.New("无法连接 llm 服务")

// StatusError 后端返回的非 2xx 状态
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm 服务错误: 状态码 %d", e.StatusCode)
}

// ErrorText 将生成错误转换为可直接返回给用户的文案
func ErrorText(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrTimeout):
		return "Error: LLM request timed out. Please try again."
	case errors.Is(err, ErrConnect):
		return "Error: Could not connect to LLM service. Is Ollama running?"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error: LLM service error (%d)", statusErr.StatusCode)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// classifyTransportError 归类 HTTP 传输层错误
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnect, err)
}
