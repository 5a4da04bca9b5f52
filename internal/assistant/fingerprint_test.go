package assistant

import (
	"strings"
	"testing"

	"github.com/openclaw/clawbot/internal/history"
)

func TestFingerprintStability(t *testing.T) {
	hist := []history.Message{{Role: "user", Content: "antes"}}

	a := fingerprint("pergunta", hist, "")
	b := fingerprint("pergunta", hist, "")
	if a != b {
		t.Errorf("identical inputs must fingerprint identically: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "clawbot:response:") {
		t.Errorf("missing key namespace: %q", a)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	hist := []history.Message{{Role: "user", Content: "antes"}}
	base := fingerprint("pergunta", hist, "")

	variants := map[string]string{
		"different prompt":  fingerprint("outra pergunta", hist, ""),
		"different history": fingerprint("pergunta", []history.Message{{Role: "user", Content: "depois"}}, ""),
		"longer history":    fingerprint("pergunta", append(hist, history.Message{Role: "assistant", Content: "x"}), ""),
		"with image":        fingerprint("pergunta", hist, "data:image/png;base64,AAAA"),
	}
	for name, got := range variants {
		if got == base {
			t.Errorf("%s should change the fingerprint", name)
		}
	}
}
