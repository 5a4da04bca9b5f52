package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // CGO-free driver
)

// SQLiteStore persists chat history in a local SQLite database, pruning each
// chat to a bounded number of turns.
type SQLiteStore struct {
	db          *sql.DB
	maxMessages int
	logger      *zap.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_chat_history_chat_id ON chat_history(chat_id);
`

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, maxMessages int, logger *zap.Logger) (*SQLiteStore, error) {
	if maxMessages <= 0 {
		maxMessages = 50
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("SQLite history store initialized",
		zap.String("path", path), zap.Int("max_messages", maxMessages))
	return &SQLiteStore{db: db, maxMessages: maxMessages, logger: logger}, nil
}

// AddMessage inserts a turn and prunes the chat back to the bound.
func (s *SQLiteStore) AddMessage(ctx context.Context, chatID string, msg Message) error {
	var name any
	if msg.Name != "" {
		name = msg.Name
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (chat_id, role, content, name) VALUES (?, ?, ?, ?)`,
		chatID, msg.Role, msg.Content, name); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	// Keep only the newest maxMessages rows per chat. Ordered by id rather
	// than timestamp so rapid inserts stay correctly ordered.
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_history
		WHERE chat_id = ? AND id NOT IN (
			SELECT id FROM chat_history
			WHERE chat_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`, chatID, chatID, s.maxMessages); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// GetHistory returns up to limit most recent turns, oldest first.
func (s *SQLiteStore) GetHistory(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > s.maxMessages {
		limit = s.maxMessages
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, COALESCE(name, '')
		FROM chat_history
		WHERE chat_id = ?
		ORDER BY id DESC
		LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Name); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// Rows come newest-first; reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ClearHistory removes all turns for a chat.
func (s *SQLiteStore) ClearHistory(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_history WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", zap.String("chat_id", chatID))
	return nil
}

// Close shuts down the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
