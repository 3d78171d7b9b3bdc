package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"aurapilot/internal/rag"
	"aurapilot/internal/worker/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RAGHandler 处理文档索引任务
type RAGHandler struct {
	indexer *rag.Indexer
	docs    *rag.DocumentService
	logger  *zap.Logger
}

// NewRAGHandler 创建 RAG 任务处理器
func NewRAGHandler(indexer *rag.Indexer, docs *rag.DocumentService, logger *zap.Logger) *RAGHandler {
	return &RAGHandler{
		indexer: indexer,
		docs:    docs,
		logger:  logger,
	}
}

// HandleProcessDocument 执行文档索引流程。
// 索引内部失败写入文档状态，不向队列返回错误，避免任务重试。
func (h *RAGHandler) HandleProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ProcessDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("解析任务载荷失败: %w", err)
	}

	log := h.logger.With(
		zap.String("document_id", payload.DocumentID),
		zap.Uint("user_id", payload.UserID),
	)
	log.Info("开始处理文档索引任务")

	content, err := os.ReadFile(payload.FilePath)
	if err != nil {
		log.Warn("读取暂存文件失败", zap.String("path", payload.FilePath), zap.Error(err))
		if uerr := h.docs.UpdateStatus(ctx, payload.DocumentID, rag.DocumentStatusFailed, 0,
			fmt.Sprintf("读取上传文件失败: %v", err)); uerr != nil {
			log.Warn("更新文档状态失败", zap.Error(uerr))
		}
		return nil
	}
	// 索引完成后清理暂存文件
	defer os.Remove(payload.FilePath)

	result, err := h.indexer.IndexDocument(ctx, payload.UserID, payload.DocumentID, payload.Filename, content)
	if err != nil {
		return fmt.Errorf("文档索引异常: %w", err)
	}

	log.Info("文档索引任务完成",
		zap.String("status", result.Status),
		zap.Int("chunks", result.ChunkCount))
	return nil
}
