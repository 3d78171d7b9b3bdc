package chat

import "time"

// QueryRequest 对话查询请求
type QueryRequest struct {
	Query        string  `json:"query" binding:"required"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float32 `json:"temperature"`
}

// QueryResponse 对话查询响应
type QueryResponse struct {
	Response    string   `json:"response"`
	Sources     []string `json:"sources"`
	ContextUsed bool     `json:"context_used"`
}

// Message 会话中的一条消息
type Message struct {
	Role      string    `json:"role"` // user 或 assistant
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
