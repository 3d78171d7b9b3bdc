package health

import (
	"net/http"

	"aurapilot/internal/rag"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 健康与就绪检查接口
type Handler struct {
	db       *gorm.DB
	index    rag.VectorIndex
	embedder *rag.EmbeddingService
}

// NewHandler 创建健康检查处理器
func NewHandler(db *gorm.DB, index rag.VectorIndex, embedder *rag.EmbeddingService) *Handler {
	return &Handler{db: db, index: index, embedder: embedder}
}

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "aurapilot",
	})
}

// Ready 就绪检查：数据库连通性、向量索引可用性与向量化降级状态。
// 向量索引不可用或向量化降级不算失败，只在响应中如实标注。
func (h *Handler) Ready(c *gin.Context) {
	resp := gin.H{
		"status":             "ready",
		"index_ready":        h.index != nil && h.index.Ready(),
		"embedding_degraded": h.embedder != nil && h.embedder.Degraded(),
	}

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.Ping() != nil {
			resp["status"] = "not_ready"
			resp["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "connected"
	}

	c.JSON(http.StatusOK, resp)
}
