package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PineconeOptions 初始化 Pinecone 向量索引的配置
type PineconeOptions struct {
	APIKey          string
	IndexHost       string
	VectorDimension int
	TimeoutSeconds  int
	UpsertBatchSize int
	HTTPClient      *http.Client
}

// PineconeStore 基于 Pinecone HTTP API 的向量索引实现。
//
// APIKey 或 IndexHost 缺失时索引处于未初始化状态：写入与删除返回
// 包装了 ErrUnavailable 的错误，检索返回空结果，调用方据此降级。
type PineconeStore struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	vectorSize  int
	batchSize   int
	initialized bool
}

// NewPineconeStore 创建 Pinecone 向量索引实例；配置不全时返回未初始化实例而非错误
func NewPineconeStore(opts PineconeOptions) *PineconeStore {
	vectorSize := opts.VectorDimension
	if vectorSize <= 0 {
		vectorSize = 384
	}

	batchSize := opts.UpsertBatchSize
	if batchSize <= 0 || batchSize > defaultUpsertBatchSize {
		batchSize = defaultUpsertBatchSize
	}

	timeout := opts.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}

	baseURL := strings.TrimSpace(opts.IndexHost)
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	return &PineconeStore{
		client:      client,
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		vectorSize:  vectorSize,
		batchSize:   batchSize,
		initialized: opts.APIKey != "" && baseURL != "",
	}
}

// Ready 索引是否完成初始化
func (s *PineconeStore) Ready() bool {
	return s.initialized
}

// Upsert 按 ID 幂等写入一批向量，超过批次上限时拆分为多次请求
func (s *PineconeStore) Upsert(ctx context.Context, namespace string, records []*VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if !s.initialized {
		return 0, fmt.Errorf("pinecone 索引未初始化: %w", ErrUnavailable)
	}

	vectors := make([]pineconeVector, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if len(rec.Embedding) != s.vectorSize {
			return 0, newDimensionError(s.vectorSize, len(rec.Embedding))
		}

		metadata := map[string]any{
			"document_id": rec.DocumentID,
			"text":        rec.Text,
			"source":      rec.Source,
			"chunk_index": rec.ChunkIndex,
		}
		for k, v := range rec.Metadata {
			metadata[k] = v
		}

		vectors = append(vectors, pineconeVector{
			ID:       rec.ID,
			Values:   rec.Embedding,
			Metadata: metadata,
		})
	}

	total := 0
	for start := 0; start < len(vectors); start += s.batchSize {
		end := min(start+s.batchSize, len(vectors))
		req := pineconeUpsertRequest{
			Vectors:   vectors[start:end],
			Namespace: namespace,
		}
		var resp pineconeUpsertResponse
		if err := s.doRequest(ctx, http.MethodPost, "/vectors/upsert", req, &resp); err != nil {
			return total, fmt.Errorf("pinecone upsert 失败: %w", err)
		}
		total += resp.UpsertedCount
	}
	return total, nil
}

// Query 在命名空间内执行相似度检索；索引未初始化时返回空结果
func (s *PineconeStore) Query(ctx context.Context, namespace string, queryVector []float32, topK int) ([]*RetrievalResult, error) {
	if len(queryVector) == 0 {
		return nil, &ValidationError{Field: "query_vector", Message: "查询向量不能为空"}
	}
	if !s.initialized {
		return nil, nil
	}
	if s.vectorSize > 0 && len(queryVector) != s.vectorSize {
		return nil, newDimensionError(s.vectorSize, len(queryVector))
	}
	if topK <= 0 {
		topK = 5
	}

	req := pineconeQueryRequest{
		Vector:          queryVector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}
	var resp pineconeQueryResponse
	if err := s.doRequest(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query 失败: %w", err)
	}

	results := make([]*RetrievalResult, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		text, _ := match.Metadata["text"].(string)
		source, _ := match.Metadata["source"].(string)
		documentID, _ := match.Metadata["document_id"].(string)
		results = append(results, &RetrievalResult{
			ID:         match.ID,
			DocumentID: documentID,
			Text:       text,
			Source:     source,
			ChunkIndex: metadataInt(match.Metadata, "chunk_index"),
			Score:      match.Score,
			Metadata:   match.Metadata,
		})
	}
	return results, nil
}

// DeleteByDocument 按 metadata 过滤删除指定文档的全部向量
func (s *PineconeStore) DeleteByDocument(ctx context.Context, namespace string, documentID string) error {
	if documentID == "" {
		return nil
	}
	if !s.initialized {
		return fmt.Errorf("pinecone 索引未初始化: %w", ErrUnavailable)
	}

	req := pineconeDeleteRequest{
		Namespace: namespace,
		Filter:    map[string]any{"document_id": map[string]any{"$eq": documentID}},
	}
	if err := s.doRequest(ctx, http.MethodPost, "/vectors/delete", req, nil); err != nil {
		return fmt.Errorf("pinecone delete 失败: %w", err)
	}
	return nil
}

// DeleteNamespace 清空命名空间
func (s *PineconeStore) DeleteNamespace(ctx context.Context, namespace string) error {
	if !s.initialized {
		return fmt.Errorf("pinecone 索引未初始化: %w", ErrUnavailable)
	}
	req := pineconeDeleteRequest{
		Namespace: namespace,
		DeleteAll: true,
	}
	if err := s.doRequest(ctx, http.MethodPost, "/vectors/delete", req, nil); err != nil {
		return fmt.Errorf("pinecone delete 失败: %w", err)
	}
	return nil
}

// Stats 查询命名空间的向量统计
func (s *PineconeStore) Stats(ctx context.Context, namespace string) (*IndexStats, error) {
	if !s.initialized {
		return &IndexStats{Namespace: namespace, Dimension: s.vectorSize}, nil
	}

	var resp pineconeStatsResponse
	if err := s.doRequest(ctx, http.MethodPost, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("pinecone stats 失败: %w", err)
	}

	stats := &IndexStats{
		Namespace:    namespace,
		Dimension:    resp.Dimension,
		TotalVectors: resp.TotalVectorCount,
	}
	if ns, ok := resp.Namespaces[namespace]; ok {
		stats.VectorCount = ns.VectorCount
	}
	return stats, nil
}

func (s *PineconeStore) doRequest(ctx context.Context, method, path string, payload any, dest any) error {
	var bodyReader *bytes.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("pinecone API 错误: %s (%d)", errBody.Message, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func metadataInt(metadata map[string]any, key string) int {
	switch n := metadata[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// --- Pinecone API payloads ---

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace,omitempty"`
}

type pineconeUpsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []pineconeMatch `json:"matches"`
}

type pineconeMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type pineconeDeleteRequest struct {
	IDs       []string       `json:"ids,omitempty"`
	DeleteAll bool           `json:"deleteAll,omitempty"`
	Filter    map[string]any `json:"filter,omitempty"`
	Namespace string         `json:"namespace,omitempty"`
}

type pineconeStatsResponse struct {
	Dimension        int                          `json:"dimension"`
	TotalVectorCount int64                        `json:"totalVectorCount"`
	Namespaces       map[string]pineconeNamespace `json:"namespaces"`
}

type pineconeNamespace struct {
	VectorCount int64 `json:"vectorCount"`
}
