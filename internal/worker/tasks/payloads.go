// Package tasks 定义异步任务类型与载荷。
package tasks

// 任务类型
const (
	TypeProcessDocument = "rag:process_document"
)

// ProcessDocumentPayload 文档索引任务载荷。
// 上传文件先落盘到暂存目录，任务携带路径而非文件内容。
type ProcessDocumentPayload struct {
	DocumentID string `json:"document_id"`
	UserID     uint   `json:"user_id"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
}
