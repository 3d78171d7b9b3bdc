package chat

import (
	"sync"
	"time"
)

// historyStore 进程内会话历史，按用户分组，读写均加锁
type historyStore struct {
	mu       sync.RWMutex
	messages map[uint][]Message
}

func newHistoryStore() *historyStore {
	return &historyStore{messages: make(map[uint][]Message)}
}

func (s *historyStore) append(userID uint, role, content string, sources []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[userID] = append(s.messages[userID], Message{
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now(),
	})
}

func (s *historyStore) list(userID uint) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[userID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *historyStore) clear(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, userID)
}
