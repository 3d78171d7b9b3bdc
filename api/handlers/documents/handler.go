package documents

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"aurapilot/api/handlers/common"
	"aurapilot/internal/infra/queue"
	"aurapilot/internal/rag"
	"aurapilot/internal/rag/parsers"
	"aurapilot/internal/worker/tasks"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 文档管理接口
type Handler struct {
	docs        *rag.DocumentService
	index       rag.VectorIndex
	queue       queue.Client
	parsers     *parsers.Registry
	uploadDir   string
	maxFileSize int64
	logger      *zap.Logger
}

// NewHandler 创建文档接口处理器
func NewHandler(docs *rag.DocumentService, index rag.VectorIndex, queueClient queue.Client, registry *parsers.Registry, uploadDir string, maxFileSize int64, logger *zap.Logger) *Handler {
	if registry == nil {
		registry = parsers.NewRegistry()
	}
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	return &Handler{
		docs:        docs,
		index:       index,
		queue:       queueClient,
		parsers:     registry,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Upload 上传文档并触发后台索引，立即返回 202
func (h *Handler) Upload(c *gin.Context) {
	userID := c.GetUint("user_id")

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{Message: "缺少上传文件"})
		return
	}

	if file.Size > h.maxFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, common.ErrorResponse{
			Message: fmt.Sprintf("文件超过大小限制 (%d 字节)", h.maxFileSize),
		})
		return
	}

	if !h.parsers.Supported(file.Filename) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Message: fmt.Sprintf("不支持的文件类型: %s", filepath.Ext(file.Filename)),
		})
		return
	}

	doc, err := h.docs.CreateDocument(c.Request.Context(), userID, file.Filename,
		file.Header.Get("Content-Type"), file.Size)
	if err != nil {
		h.logger.Error("登记文档失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "登记文档失败"})
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("创建上传目录失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "保存文件失败"})
		return
	}

	savedPath := filepath.Join(h.uploadDir, doc.ID+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, savedPath); err != nil {
		h.logger.Error("保存上传文件失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "保存文件失败"})
		return
	}

	if err := h.queue.EnqueueProcessDocument(tasks.ProcessDocumentPayload{
		DocumentID: doc.ID,
		UserID:     userID,
		Filename:   file.Filename,
		FilePath:   savedPath,
	}); err != nil {
		h.logger.Error("索引任务入队失败", zap.String("document_id", doc.ID), zap.Error(err))
		_ = h.docs.UpdateStatus(c.Request.Context(), doc.ID, rag.DocumentStatusFailed, 0, "索引任务入队失败")
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "触发索引失败"})
		return
	}

	c.JSON(http.StatusAccepted, common.APIResponse{
		Success: true,
		Data: UploadResponse{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Status:     doc.Status,
			Message:    "文档已接收，正在后台索引",
		},
	})
}

// List 返回当前用户的全部文档
func (h *Handler) List(c *gin.Context) {
	userID := c.GetUint("user_id")

	docs, err := h.docs.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("查询文档列表失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "查询文档列表失败"})
		return
	}

	items := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toDocumentResponse(doc))
	}
	c.JSON(http.StatusOK, common.APIResponse{
		Success: true,
		Data:    common.ListResponse{Items: items, Total: len(items)},
	})
}

// Get 返回单个文档
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetUint("user_id")

	doc, err := h.docs.GetDocument(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, rag.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, common.ErrorResponse{Message: "文档不存在"})
		return
	}
	if err != nil {
		h.logger.Error("查询文档失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "查询文档失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Data: toDocumentResponse(doc)})
}

// Delete 删除文档及其向量
func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetUint("user_id")

	err := h.docs.DeleteDocument(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, rag.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, common.ErrorResponse{Message: "文档不存在"})
		return
	}
	if err != nil {
		h.logger.Error("删除文档失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "删除文档失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "文档已删除"})
}

// VectorStatus 返回文档的向量索引状态
func (h *Handler) VectorStatus(c *gin.Context) {
	userID := c.GetUint("user_id")

	status, err := h.docs.VectorStatus(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, rag.ErrDocumentNotFound) {
		c.JSON(http.StatusNotFound, common.ErrorResponse{Message: "文档不存在"})
		return
	}
	if err != nil {
		h.logger.Error("查询向量状态失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.ErrorResponse{Message: "查询向量状态失败"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Data: status})
}

// IndexStats 返回当前用户命名空间的索引统计
func (h *Handler) IndexStats(c *gin.Context) {
	userID := c.GetUint("user_id")

	stats, err := h.index.Stats(c.Request.Context(), rag.UserNamespace(userID))
	if err != nil {
		h.logger.Warn("查询索引统计失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{Message: "向量索引暂不可用"})
		return
	}

	c.JSON(http.StatusOK, common.APIResponse{Success: true, Data: stats})
}
