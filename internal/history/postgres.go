package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresStore persists chat history in PostgreSQL via a pgx connection
// pool. Suitable when several chats are served from one long-lived process
// and history must survive restarts.
type PostgresStore struct {
	db          *pgxpool.Pool
	maxMessages int
	logger      *zap.Logger
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id BIGSERIAL PRIMARY KEY,
	chat_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	name TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_history_chat_id ON chat_history(chat_id);
`

// NewPostgresStore connects to PostgreSQL and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, maxMessages int, logger *zap.Logger) (*PostgresStore, error) {
	if maxMessages <= 0 {
		maxMessages = 50
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	logger.Info("PostgreSQL history store initialized", zap.Int("max_messages", maxMessages))
	return &PostgresStore{db: pool, maxMessages: maxMessages, logger: logger}, nil
}

// AddMessage inserts a turn and prunes the chat back to the bound.
func (s *PostgresStore) AddMessage(ctx context.Context, chatID string, msg Message) error {
	var name any
	if msg.Name != "" {
		name = msg.Name
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO chat_history (chat_id, role, content, name) VALUES ($1, $2, $3, $4)`,
		chatID, msg.Role, msg.Content, name); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := s.db.Exec(ctx, `
		DELETE FROM chat_history
		WHERE chat_id = $1 AND id NOT IN (
			SELECT id FROM chat_history
			WHERE chat_id = $1
			ORDER BY id DESC
			LIMIT $2
		)`, chatID, s.maxMessages); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// GetHistory returns up to limit most recent turns, oldest first.
func (s *PostgresStore) GetHistory(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > s.maxMessages {
		limit = s.maxMessages
	}
	rows, err := s.db.Query(ctx, `
		SELECT role, content, COALESCE(name, '')
		FROM chat_history
		WHERE chat_id = $1
		ORDER BY id DESC
		LIMIT $2`, chatID, limit)
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

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ClearHistory removes all turns for a chat.
func (s *PostgresStore) ClearHistory(ctx context.Context, chatID string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM chat_history WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", zap.String("chat_id", chatID))
	return nil
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
