// Package history stores the durable, bounded conversation history for each
// chat. Only user/assistant text turns are persisted; the tool round-trips
// inside a single response stay in the orchestration loop's working list.
package history

import "context"

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"` // system|user|assistant|tool
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Store is the conversation history boundary. Implementations must return
// history in chronological order, oldest first, truncated to at most the
// requested count, and provide per-chat atomicity.
type Store interface {
	AddMessage(ctx context.Context, chatID string, msg Message) error
	GetHistory(ctx context.Context, chatID string, limit int) ([]Message, error)
	ClearHistory(ctx context.Context, chatID string) error
	Close() error
}
