package chat

import (
	"net/http"

	"aurapilot/api/handlers/common"
	"aurapilot/internal/rag"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 对话接口：检索增强问答与会话历史
type Handler struct {
	pipeline *rag.Pipeline
	history  *historyStore
	logger   *zap.Logger
}

// NewHandler 创建对话接口处理器
func NewHandler(pipeline *rag.Pipeline, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		history:  newHistoryStore(),
		logger:   logger,
	}
}

// Query 执行检索增强问答并记录会话。
// 管线内部的生成失败会转为可读文案，接口始终返回 200。
func (h *Handler) Query(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{Message: "请求参数不合法: query 必填"})
		return
	}

	result := h.pipeline.Query(c.Request.Context(), rag.QueryRequest{
		UserID:       userID,
		Query:        req.Query,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
	})

	h.history.append(userID, "user", req.Query, nil)
	h.history.append(userID, "assistant", result.Response, result.Sources)

	if result.Stage == rag.StageFailed {
		h.logger.Warn("问答流程降级返回",
			zap.Uint("user_id", userID),
			zap.String("error", result.Error))
	}

	c.JSON(http.StatusOK, QueryResponse{
		Response:    result.Response,
		Sources:     result.Sources,
		ContextUsed: result.ContextUsed,
	})
}

// Messages 返回当前用户的会话历史
func (h *Handler) Messages(c *gin.Context) {
	userID := c.GetUint("user_id")
	c.JSON(http.StatusOK, common.APIResponse{
		Success: true,
		Data:    h.history.list(userID),
	})
}

// ClearHistory 清空当前用户的会话历史
func (h *Handler) ClearHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	h.history.clear(userID)
	c.JSON(http.StatusOK, common.APIResponse{Success: true, Message: "会话历史已清空"})
}
