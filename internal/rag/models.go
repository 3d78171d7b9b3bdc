package rag

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// 文档生命周期状态
const (
	DocumentStatusUploaded   = "uploaded"
	DocumentStatusProcessing = "processing"
	DocumentStatusIndexed    = "indexed"
	DocumentStatusFailed     = "failed"
)

// Document 用户上传的文档及其索引状态
type Document struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Filename    string    `gorm:"size:512;not null" json:"filename"`
	ContentType string    `gorm:"size:128" json:"content_type"`
	FileSize    int64     `json:"file_size"`
	Status      string    `gorm:"size:32;default:uploaded;index" json:"status"`
	ChunkCount  int       `json:"chunk_count"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// ChunkRecord 存储在 pgvector 后端的文档片段向量
type ChunkRecord struct {
	ID         string          `gorm:"primaryKey;size:256"`
	Namespace  string          `gorm:"index;size:128;not null"`
	DocumentID string          `gorm:"index;size:64;not null"`
	Content    string          `gorm:"type:text"`
	Source     string          `gorm:"size:512"`
	ChunkIndex int             `gorm:"not null"`
	Embedding  pgvector.Vector `gorm:"type:vector(384)"`
	CreatedAt  time.Time
}

// TableName 指定表名
func (ChunkRecord) TableName() string {
	return "chunk_records"
}
