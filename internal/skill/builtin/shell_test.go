package builtin

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func runCommand(t *testing.T, command string) string {
	t.Helper()
	s := NewCommandSkill(zap.NewNop())
	result, err := s.Execute(context.Background(), map[string]any{"command": command})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result.(string)
}

func TestCommandSkillRunsAllowed(t *testing.T) {
	out := runCommand(t, "echo hello")
	if !strings.Contains(out, "hello") {
		t.Errorf("got %q, want echo output", out)
	}
}

func TestCommandSkillBlocksUnknownBinary(t *testing.T) {
	out := runCommand(t, "rm -rf /")
	if !strings.Contains(out, "Erro de Segurança") {
		t.Errorf("got %q, want security error", out)
	}
}

func TestCommandSkillBlocksMetacharacters(t *testing.T) {
	for _, cmd := range []string{
		"echo hi; rm -rf /",
		"echo hi | cat",
		"echo `whoami`",
		"echo $HOME",
		"echo hi && ls",
	} {
		out := runCommand(t, cmd)
		if !strings.Contains(out, "Erro de Segurança") {
			t.Errorf("command %q should be blocked, got %q", cmd, out)
		}
	}
}

func TestCommandSkillEmptyCommand(t *testing.T) {
	out := runCommand(t, "   ")
	if !strings.Contains(out, "Erro") {
		t.Errorf("got %q, want error for empty command", out)
	}
}
