package rag

import (
	"sort"
	"sync"
	"time"
)

// DocumentRegistry 进程内文档注册表，按用户分组，读写均加锁。
// 作为数据库之外的热数据镜像，后台索引任务直接更新这里的状态。
type DocumentRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*Document
	byUser map[uint]map[string]*Document
}

// NewDocumentRegistry 创建文档注册表
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		byID:   make(map[string]*Document),
		byUser: make(map[uint]map[string]*Document),
	}
}

// Put 登记或覆盖文档
func (r *DocumentRegistry) Put(doc *Document) {
	if doc == nil || doc.ID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *doc
	r.byID[doc.ID] = &copied
	userDocs, ok := r.byUser[doc.UserID]
	if !ok {
		userDocs = make(map[string]*Document)
		r.byUser[doc.UserID] = userDocs
	}
	userDocs[doc.ID] = &copied
}

// Get 按 ID 查询文档，返回副本
func (r *DocumentRegistry) Get(id string) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	copied := *doc
	return &copied, true
}

// ListByUser 返回用户的全部文档，按创建时间倒序
func (r *DocumentRegistry) ListByUser(userID uint) []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*Document, 0, len(r.byUser[userID]))
	for _, doc := range r.byUser[userID] {
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs
}

// Delete 注销文档
func (r *DocumentRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	if userDocs, ok := r.byUser[doc.UserID]; ok {
		delete(userDocs, id)
		if len(userDocs) == 0 {
			delete(r.byUser, doc.UserID)
		}
	}
}

// UpdateStatus 更新文档状态；errMsg 仅在失败时记录
func (r *DocumentRegistry) UpdateStatus(id, status string, chunkCount int, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.byID[id]
	if !ok {
		return
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	doc.Error = errMsg
	doc.UpdatedAt = time.Now()
}
