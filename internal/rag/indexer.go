package rag

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aurapilot/internal/metrics"
	"aurapilot/internal/rag/parsers"
)

// IndexResult 一次文档索引的结果
type IndexResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	Upserted   int    `json:"upserted"`
	Status     string `json:"status"`
}

// Indexer 文档索引工作流：提取文本、切分、向量化、写入索引、更新状态。
// 每一步失败都将文档置为 failed 并结束，不做重试。
type Indexer struct {
	parsers  *parsers.Registry
	chunker  *Chunker
	embedder *EmbeddingService
	index    VectorIndex
	docs     *DocumentService
	logger   *zap.Logger
}

// NewIndexer 创建文档索引器
func NewIndexer(registry *parsers.Registry, chunker *Chunker, embedder *EmbeddingService, index VectorIndex, docs *DocumentService, logger *zap.Logger) *Indexer {
	if registry == nil {
		registry = parsers.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		parsers:  registry,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		docs:     docs,
		logger:   logger,
	}
}

// IndexDocument 执行完整索引流程。
// 返回的 IndexResult 始终有效；流程失败时 Status 为 failed，错误原因已写入文档状态。
func (ix *Indexer) IndexDocument(ctx context.Context, userID uint, documentID, filename string, content []byte) (*IndexResult, error) {
	start := time.Now()
	log := ix.logger.With(
		zap.String("document_id", documentID),
		zap.Uint("user_id", userID),
		zap.String("filename", filename),
	)

	if err := ix.docs.UpdateStatus(ctx, documentID, DocumentStatusProcessing, 0, ""); err != nil {
		log.Warn("更新文档状态失败", zap.Error(err))
	}

	fail := func(reason string, err error) (*IndexResult, error) {
		msg := reason
		if err != nil {
			msg = fmt.Sprintf("%s: %v", reason, err)
		}
		log.Warn("文档索引失败", zap.String("reason", msg))
		if uerr := ix.docs.UpdateStatus(ctx, documentID, DocumentStatusFailed, 0, msg); uerr != nil {
			log.Warn("更新文档状态失败", zap.Error(uerr))
		}
		metrics.DocumentsIndexedTotal.WithLabelValues("failed").Inc()
		return &IndexResult{DocumentID: documentID, Status: DocumentStatusFailed}, nil
	}

	// 1. 提取文本
	text, err := ix.parsers.Extract(filename, bytes.NewReader(content))
	if err != nil {
		return fail("文本提取失败", err)
	}

	// 2. 切分
	chunks := ix.chunker.ChunkText(text, filename)
	if len(chunks) == 0 {
		return fail("文档没有可索引的文本", nil)
	}

	// 3. 向量化；失败的片段丢弃
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors := ix.embedder.EmbedMany(ctx, texts)

	records := make([]*VectorRecord, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			log.Warn("片段向量化失败，跳过", zap.Int("chunk_index", chunk.Index))
			continue
		}
		records = append(records, &VectorRecord{
			ID:         ChunkVectorID(documentID, chunk.Index),
			DocumentID: documentID,
			Embedding:  vectors[i],
			Text:       chunk.Text,
			Source:     chunk.Source,
			ChunkIndex: chunk.Index,
			UserID:     userID,
		})
	}
	if len(records) == 0 {
		return fail("所有片段向量化失败", nil)
	}

	// 4. 写入索引
	upserted, err := ix.index.Upsert(ctx, UserNamespace(userID), records)
	if err != nil {
		return fail("写入向量索引失败", err)
	}
	metrics.ChunksUpsertedTotal.Add(float64(upserted))

	// 5. 完成；chunk_count 记录切分出的片段数
	if err := ix.docs.UpdateStatus(ctx, documentID, DocumentStatusIndexed, len(chunks), ""); err != nil {
		log.Warn("更新文档状态失败", zap.Error(err))
	}

	metrics.DocumentsIndexedTotal.WithLabelValues("indexed").Inc()
	metrics.IndexingDuration.Observe(time.Since(start).Seconds())
	log.Info("文档索引完成",
		zap.Int("chunks", len(chunks)),
		zap.Int("upserted", upserted),
		zap.Duration("elapsed", time.Since(start)))

	return &IndexResult{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Upserted:   upserted,
		Status:     DocumentStatusIndexed,
	}, nil
}
