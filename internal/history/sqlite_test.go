package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func newTestSQLiteStore(t *testing.T, maxMessages int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), maxMessages, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t, 20)
	ctx := context.Background()

	if err := s.AddMessage(ctx, "chat1", Message{Role: "user", Content: "oi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddMessage(ctx, "chat1", Message{Role: "assistant", Content: "olá", Name: "bot"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := s.GetHistory(ctx, "chat1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "oi" || msgs[1].Content != "olá" {
		t.Errorf("wrong order: %v", msgs)
	}
	if msgs[1].Name != "bot" {
		t.Errorf("name not persisted: %v", msgs[1])
	}
}

func TestSQLiteStorePrune(t *testing.T) {
	s := newTestSQLiteStore(t, 3)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := s.AddMessage(ctx, "chat1", Message{Role: "user", Content: fmt.Sprintf("m%d", i)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	msgs, err := s.GetHistory(ctx, "chat1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 after pruning", len(msgs))
	}
	if msgs[0].Content != "m3" || msgs[2].Content != "m5" {
		t.Errorf("pruning kept wrong window: %v", msgs)
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	s := newTestSQLiteStore(t, 20)
	ctx := context.Background()

	s.AddMessage(ctx, "chat1", Message{Role: "user", Content: "a"})
	s.AddMessage(ctx, "chat2", Message{Role: "user", Content: "b"})

	if err := s.ClearHistory(ctx, "chat1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs, _ := s.GetHistory(ctx, "chat1", 10); len(msgs) != 0 {
		t.Errorf("chat1 should be empty, got %v", msgs)
	}
	if msgs, _ := s.GetHistory(ctx, "chat2", 10); len(msgs) != 1 {
		t.Errorf("chat2 should be untouched, got %v", msgs)
	}
}
