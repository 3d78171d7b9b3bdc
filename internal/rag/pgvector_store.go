package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PGVectorStore 基于 PostgreSQL pgvector 扩展的向量索引实现
type PGVectorStore struct {
	db        *gorm.DB
	dimension int
	batchSize int
}

// NewPGVectorStore 创建 pgvector 索引实例
func NewPGVectorStore(db *gorm.DB, dimension int) (*PGVectorStore, error) {
	if db == nil {
		return nil, errors.New("数据库连接不能为空")
	}
	if dimension <= 0 {
		dimension = 384
	}

	store := &PGVectorStore{
		db:        db,
		dimension: dimension,
		batchSize: defaultUpsertBatchSize,
	}

	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("初始化 pgvector 表失败: %w", err)
	}
	return store, nil
}

func (s *PGVectorStore) ensureSchema() error {
	if err := s.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	if err := s.db.AutoMigrate(&ChunkRecord{}); err != nil {
		return err
	}
	return s.db.Exec(fmt.Sprintf(
		"ALTER TABLE chunk_records ALTER COLUMN embedding TYPE vector(%d)", s.dimension,
	)).Error
}

// Ready 索引是否可用
func (s *PGVectorStore) Ready() bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// Upsert 按 ID 幂等写入一批向量，重复 ID 覆盖旧记录
func (s *PGVectorStore) Upsert(ctx context.Context, namespace string, records []*VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]ChunkRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if len(rec.Embedding) != s.dimension {
			return 0, newDimensionError(s.dimension, len(rec.Embedding))
		}
		rows = append(rows, ChunkRecord{
			ID:         rec.ID,
			Namespace:  namespace,
			DocumentID: rec.DocumentID,
			Content:    rec.Text,
			Source:     rec.Source,
			ChunkIndex: rec.ChunkIndex,
			Embedding:  pgvector.NewVector(rec.Embedding),
		})
	}

	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(rows); start += s.batchSize {
			end := min(start+s.batchSize, len(rows))
			batch := rows[start:end]
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&batch).Error; err != nil {
				return fmt.Errorf("写入向量批次失败: %w", err)
			}
			count += len(batch)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Query 在命名空间内按余弦相似度检索
func (s *PGVectorStore) Query(ctx context.Context, namespace string, queryVector []float32, topK int) ([]*RetrievalResult, error) {
	if len(queryVector) == 0 {
		return nil, &ValidationError{Field: "query_vector", Message: "查询向量不能为空"}
	}
	if len(queryVector) != s.dimension {
		return nil, newDimensionError(s.dimension, len(queryVector))
	}
	if topK <= 0 {
		topK = 5
	}

	// <=> 是 pgvector 的余弦距离操作符，1 - 距离即余弦相似度
	query := `
		SELECT
			id,
			document_id,
			content,
			source,
			chunk_index,
			1 - (embedding <=> ?) AS similarity
		FROM chunk_records
		WHERE namespace = ?
		ORDER BY embedding <=> ?
		LIMIT ?
	`

	vec := pgvector.NewVector(queryVector)
	var rows []struct {
		ID         string  `gorm:"column:id"`
		DocumentID string  `gorm:"column:document_id"`
		Content    string  `gorm:"column:content"`
		Source     string  `gorm:"column:source"`
		ChunkIndex int     `gorm:"column:chunk_index"`
		Similarity float64 `gorm:"column:similarity"`
	}
	if err := s.db.WithContext(ctx).Raw(query, vec, namespace, vec, topK).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	results := make([]*RetrievalResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, &RetrievalResult{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Text:       r.Content,
			Source:     r.Source,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Similarity,
		})
	}
	return results, nil
}

// DeleteByDocument 删除指定文档的全部向量
func (s *PGVectorStore) DeleteByDocument(ctx context.Context, namespace string, documentID string) error {
	if documentID == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("namespace = ? AND document_id = ?", namespace, documentID).
		Delete(&ChunkRecord{}).
		Error
}

// DeleteNamespace 清空命名空间
func (s *PGVectorStore) DeleteNamespace(ctx context.Context, namespace string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Delete(&ChunkRecord{}).
		Error
}

// Stats 返回命名空间统计
func (s *PGVectorStore) Stats(ctx context.Context, namespace string) (*IndexStats, error) {
	stats := &IndexStats{Namespace: namespace, Dimension: s.dimension}

	if err := s.db.WithContext(ctx).
		Model(&ChunkRecord{}).
		Where("namespace = ?", namespace).
		Count(&stats.VectorCount).Error; err != nil {
		return nil, fmt.Errorf("查询向量数量失败: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&ChunkRecord{}).
		Count(&stats.TotalVectors).Error; err != nil {
		return nil, fmt.Errorf("查询向量总量失败: %w", err)
	}
	return stats, nil
}
