package rag

import "context"

// EmbeddingProvider 抽象不同向量模型/服务的统一接口。
type EmbeddingProvider interface {
	// Embed 将单条文本转换为向量
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 批量向量化，返回与输入等长的向量列表
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetModel() string
	GetProviderName() string
	GetDimension() int
}
