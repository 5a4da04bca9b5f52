package history

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore keeps a bounded slice of turns per chat. History is lost on
// restart; use the SQLite or Postgres store for persistence.
type MemoryStore struct {
	mu          sync.RWMutex
	chats       map[string][]Message
	maxMessages int
	logger      *zap.Logger
}

// NewMemoryStore creates an in-memory history store holding at most
// maxMessages turns per chat.
func NewMemoryStore(maxMessages int, logger *zap.Logger) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	logger.Info("in-memory history store initialized", zap.Int("max_messages", maxMessages))
	return &MemoryStore{
		chats:       make(map[string][]Message),
		maxMessages: maxMessages,
		logger:      logger,
	}
}

// AddMessage appends a turn, evicting the oldest entries beyond the bound.
func (s *MemoryStore) AddMessage(_ context.Context, chatID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.chats[chatID], msg)
	if len(msgs) > s.maxMessages {
		msgs = msgs[len(msgs)-s.maxMessages:]
	}
	s.chats[chatID] = msgs
	return nil
}

// GetHistory returns up to limit most recent turns, oldest first.
func (s *MemoryStore) GetHistory(_ context.Context, chatID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.chats[chatID]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ClearHistory removes all turns for a chat.
func (s *MemoryStore) ClearHistory(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	s.logger.Info("history cleared", zap.String("chat_id", chatID))
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
