package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func setupFileSkill(t *testing.T) (base string, execute func(map[string]any) string) {
	t.Helper()
	base = t.TempDir()
	if err := os.WriteFile(filepath.Join(base, "notes.txt"), []byte("conteúdo secreto"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(base, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewFileSkill(base, zap.NewNop())
	execute = func(args map[string]any) string {
		result, err := s.Execute(context.Background(), args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return result.(string)
	}
	return base, execute
}

func TestFileSkillList(t *testing.T) {
	_, execute := setupFileSkill(t)

	out := execute(map[string]any{"action": "list", "path": "."})
	if !strings.Contains(out, "notes.txt") || !strings.Contains(out, "docs") {
		t.Errorf("listing missing entries: %q", out)
	}

	out = execute(map[string]any{"action": "list", "path": "notes.txt"})
	if !strings.Contains(out, "não é um diretório") {
		t.Errorf("expected not-a-directory error, got %q", out)
	}
}

func TestFileSkillRead(t *testing.T) {
	_, execute := setupFileSkill(t)

	out := execute(map[string]any{"action": "read", "path": "notes.txt"})
	if !strings.Contains(out, "conteúdo secreto") {
		t.Errorf("read missing file content: %q", out)
	}

	out = execute(map[string]any{"action": "read", "path": "docs"})
	if !strings.Contains(out, "não é um arquivo") {
		t.Errorf("expected not-a-file error, got %q", out)
	}
}

func TestFileSkillReadTruncates(t *testing.T) {
	base, execute := setupFileSkill(t)

	big := strings.Repeat("x", maxFileContent+100)
	if err := os.WriteFile(filepath.Join(base, "big.txt"), []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}

	out := execute(map[string]any{"action": "read", "path": "big.txt"})
	if !strings.Contains(out, "truncado") {
		t.Errorf("expected truncation notice, got %d bytes", len(out))
	}
	if len(out) > maxFileContent+200 {
		t.Errorf("truncated output still too large: %d bytes", len(out))
	}
}

func TestFileSkillBlocksTraversal(t *testing.T) {
	_, execute := setupFileSkill(t)

	for _, path := range []string{"../outside.txt", "../../etc/passwd", "/etc/passwd"} {
		out := execute(map[string]any{"action": "read", "path": path})
		if !strings.Contains(out, "Erro de Segurança") {
			t.Errorf("path %q should be blocked, got %q", path, out)
		}
	}
}
