package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDocumentNotFound 文档不存在或不属于当前用户
var ErrDocumentNotFound = errors.New("文档不存在")

// DocumentService 文档生命周期管理：登记、查询、删除与状态流转。
// 数据库为持久层，注册表为进程内镜像，两者同步更新。
type DocumentService struct {
	db       *gorm.DB
	registry *DocumentRegistry
	index    VectorIndex
	logger   *zap.Logger
}

// NewDocumentService 创建文档服务
func NewDocumentService(db *gorm.DB, registry *DocumentRegistry, index VectorIndex, logger *zap.Logger) *DocumentService {
	if registry == nil {
		registry = NewDocumentRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		db:       db,
		registry: registry,
		index:    index,
		logger:   logger,
	}
}

// Registry 返回进程内注册表
func (s *DocumentService) Registry() *DocumentRegistry {
	return s.registry
}

// CreateDocument 登记新上传的文档，初始状态为 uploaded
func (s *DocumentService) CreateDocument(ctx context.Context, userID uint, filename, contentType string, fileSize int64) (*Document, error) {
	doc := &Document{
		ID:          uuid.NewString(),
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
		FileSize:    fileSize,
		Status:      DocumentStatusUploaded,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if s.db != nil {
		if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
			return nil, fmt.Errorf("保存文档记录失败: %w", err)
		}
	}
	s.registry.Put(doc)
	return doc, nil
}

// ListDocuments 返回用户的全部文档
func (s *DocumentService) ListDocuments(ctx context.Context, userID uint) ([]*Document, error) {
	if s.db == nil {
		return s.registry.ListByUser(userID), nil
	}

	var docs []*Document
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("查询文档列表失败: %w", err)
	}
	return docs, nil
}

// GetDocument 按 ID 查询用户的文档
func (s *DocumentService) GetDocument(ctx context.Context, userID uint, documentID string) (*Document, error) {
	if s.db == nil {
		doc, ok := s.registry.Get(documentID)
		if !ok || doc.UserID != userID {
			return nil, ErrDocumentNotFound
		}
		return doc, nil
	}

	var doc Document
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", documentID, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询文档失败: %w", err)
	}
	return &doc, nil
}

// DeleteDocument 删除文档记录，并尽力清理其在向量索引中的片段。
// 向量清理失败只记录日志，不阻塞删除。
func (s *DocumentService) DeleteDocument(ctx context.Context, userID uint, documentID string) error {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if s.db != nil {
		if err := s.db.WithContext(ctx).Delete(&Document{}, "id = ?", doc.ID).Error; err != nil {
			return fmt.Errorf("删除文档记录失败: %w", err)
		}
	}
	s.registry.Delete(doc.ID)

	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, UserNamespace(userID), doc.ID); err != nil {
			s.logger.Warn("清理文档向量失败",
				zap.String("document_id", doc.ID),
				zap.Error(err))
		}
	}
	return nil
}

// UpdateStatus 更新文档状态并同步注册表
func (s *DocumentService) UpdateStatus(ctx context.Context, documentID, status string, chunkCount int, errMsg string) error {
	if s.db != nil {
		updates := map[string]any{
			"status":      status,
			"chunk_count": chunkCount,
			"error":       errMsg,
			"updated_at":  time.Now(),
		}
		if err := s.db.WithContext(ctx).
			Model(&Document{}).
			Where("id = ?", documentID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("更新文档状态失败: %w", err)
		}
	}
	s.registry.UpdateStatus(documentID, status, chunkCount, errMsg)
	return nil
}

// VectorStatus 返回文档在向量索引中的状态概览
func (s *DocumentService) VectorStatus(ctx context.Context, userID uint, documentID string) (map[string]any, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	status := map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
		"chunk_count": doc.ChunkCount,
		"index_ready": false,
	}
	if s.index != nil {
		status["index_ready"] = s.index.Ready()
		if stats, err := s.index.Stats(ctx, UserNamespace(userID)); err == nil {
			status["namespace_vectors"] = stats.VectorCount
		}
	}
	return status, nil
}
