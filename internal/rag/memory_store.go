package rag

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore 进程内向量索引，暴力余弦检索，适用于测试与单机小数据量场景。
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*VectorRecord
	dimension  int
}

// NewMemoryStore 创建内存向量索引
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]*VectorRecord),
		dimension:  dimension,
	}
}

// Ready 内存索引始终可用
func (s *MemoryStore) Ready() bool {
	return true
}

// Upsert 按 ID 幂等写入，重复 ID 覆盖旧记录
func (s *MemoryStore) Upsert(ctx context.Context, namespace string, records []*VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// 先整体校验维度，任何一条不匹配则整批拒绝
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if s.dimension > 0 && len(rec.Embedding) != s.dimension {
			return 0, newDimensionError(s.dimension, len(rec.Embedding))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]*VectorRecord)
		s.namespaces[namespace] = ns
	}

	count := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		ns[rec.ID] = rec
		count++
	}
	return count, nil
}

// Query 在命名空间内按余弦相似度降序返回 topK 条
func (s *MemoryStore) Query(ctx context.Context, namespace string, queryVector []float32, topK int) ([]*RetrievalResult, error) {
	if len(queryVector) == 0 {
		return nil, &ValidationError{Field: "query_vector", Message: "查询向量不能为空"}
	}
	if s.dimension > 0 && len(queryVector) != s.dimension {
		return nil, newDimensionError(s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}

	results := make([]*RetrievalResult, 0, len(ns))
	for _, rec := range ns {
		score := cosineSimilarity(queryVector, rec.Embedding)
		results = append(results, &RetrievalResult{
			ID:         rec.ID,
			DocumentID: rec.DocumentID,
			Text:       rec.Text,
			Source:     rec.Source,
			ChunkIndex: rec.ChunkIndex,
			Score:      score,
			Metadata:   rec.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDocument 删除指定文档的全部向量
func (s *MemoryStore) DeleteByDocument(ctx context.Context, namespace string, documentID string) error {
	if documentID == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil
	}
	for id, rec := range ns {
		if rec.DocumentID == documentID {
			delete(ns, id)
		}
	}
	return nil
}

// DeleteNamespace 清空命名空间
func (s *MemoryStore) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Stats 返回命名空间统计
func (s *MemoryStore) Stats(ctx context.Context, namespace string) (*IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, ns := range s.namespaces {
		total += int64(len(ns))
	}
	return &IndexStats{
		Namespace:    namespace,
		VectorCount:  int64(len(s.namespaces[namespace])),
		Dimension:    s.dimension,
		TotalVectors: total,
	}, nil
}

// cosineSimilarity 余弦相似度，任一向量为零向量时返回 0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
