package rag

import (
	"context"
	"fmt"
)

// VectorRecord 描述一条需要写入向量索引的文档片段。
type VectorRecord struct {
	ID         string
	DocumentID string
	Embedding  []float32
	Text       string
	Source     string
	ChunkIndex int
	UserID     uint
	Metadata   map[string]any
}

// RetrievalResult 描述一次相似度检索的返回结果。
type RetrievalResult struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Source     string         `json:"source"`
	ChunkIndex int            `json:"chunk_index"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

// IndexStats 记录某个命名空间在向量索引中的统计信息。
type IndexStats struct {
	Namespace    string `json:"namespace"`
	VectorCount  int64  `json:"vector_count"`
	Dimension    int    `json:"dimension"`
	TotalVectors int64  `json:"total_vectors"`
}

// VectorIndex 抽象向量写入、检索与删除功能，可由不同后端实现（Pinecone、pgvector、内存）。
//
// 索引按命名空间隔离，上层以 UserNamespace 生成每个用户的命名空间。
// 后端不可用时方法返回包装了 ErrUnavailable 的错误，调用方做良性降级。
type VectorIndex interface {
	// Ready 索引是否可用；不可用时写入与检索均为降级路径
	Ready() bool
	// Upsert 按 ID 幂等写入一批向量，内部按批次上限拆分
	Upsert(ctx context.Context, namespace string, records []*VectorRecord) (int, error)
	// Query 在命名空间内执行相似度检索
	Query(ctx context.Context, namespace string, queryVector []float32, topK int) ([]*RetrievalResult, error)
	// DeleteByDocument 删除指定文档的全部向量，尽力而为
	DeleteByDocument(ctx context.Context, namespace string, documentID string) error
	// DeleteNamespace 清空命名空间
	DeleteNamespace(ctx context.Context, namespace string) error
	// Stats 查询命名空间的向量统计
	Stats(ctx context.Context, namespace string) (*IndexStats, error)
}

// defaultUpsertBatchSize 单次 upsert 请求的向量数量上限
const defaultUpsertBatchSize = 100

// UserNamespace 返回用户对应的命名空间
func UserNamespace(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

// ChunkVectorID 返回文档片段在索引中的向量 ID
func ChunkVectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}
