package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaOptions 初始化 Ollama 生成器的配置
type OllamaOptions struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
	HTTPClient     *http.Client
}

// OllamaGenerator 基于 Ollama /api/generate 的文本生成器
type OllamaGenerator struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewOllamaGenerator 创建 Ollama 生成器
func NewOllamaGenerator(opts OllamaOptions) *OllamaGenerator {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := opts.Model
	if model == "" {
		model = "llama2"
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 120
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	return &OllamaGenerator{
		client:  client,
		baseURL: baseURL,
		model:   model,
	}
}

// Generate 调用 /api/generate 生成回答
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	payload := ollamaGenerateRequest{
		Model:  g.model,
		Prompt: req.Prompt,
		System: req.SystemPrompt,
		Stream: false,
	}
	if req.Temperature > 0 {
		payload.Options = &ollamaOptions{Temperature: req.Temperature}
	}
	if req.MaxTokens > 0 {
		if payload.Options == nil {
			payload.Options = &ollamaOptions{}
		}
		payload.Options.NumPredict = req.MaxTokens
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	return strings.TrimSpace(result.Response), nil
}

// Name 后端标识
func (g *OllamaGenerator) Name() string {
	return "ollama"
}

// Model 当前模型名
func (g *OllamaGenerator) Model() string {
	return g.model
}

// Healthy 通过 /api/tags 探测服务可达性
func (g *OllamaGenerator) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// --- Ollama API payloads ---

type ollamaOptions struct {
	Temperature float32 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
