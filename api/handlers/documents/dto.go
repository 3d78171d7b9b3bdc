package documents

import (
	"time"

	"aurapilot/internal/rag"
)

// DocumentResponse 文档信息响应
type DocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadResponse 上传响应；文档进入后台索引，状态需轮询查询
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func toDocumentResponse(doc *rag.Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileSize:   doc.FileSize,
		Status:     doc.Status,
		ChunkCount: doc.ChunkCount,
		Error:      doc.Error,
		CreatedAt:  doc.CreatedAt,
	}
}
