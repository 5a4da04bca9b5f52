package security

import (
	"testing"

	"go.uber.org/zap"
)

func TestNormalizeNumber(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"5511999999999@s.whatsapp.net", "5511999999999"},
		{"5511999999999@c.us", "5511999999999"},
		{"123456789@g.us", "123456789"},
		{"+55 (11) 99999-9999", "5511999999999"},
		{"5511999999999", "5511999999999"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeNumber(tc.in); got != tc.want {
			t.Errorf("NormalizeNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsAllowed(t *testing.T) {
	a := NewAllowlist([]string{"+55 11 99999-9999", "5521888888888"}, zap.NewNop())

	// Same number arriving in JID form.
	if !a.IsAllowed("5511999999999@s.whatsapp.net") {
		t.Error("whitelisted JID should be allowed")
	}
	if !a.IsAllowed("5521888888888@c.us") {
		t.Error("whitelisted number should be allowed")
	}
	if a.IsAllowed("5511000000000@s.whatsapp.net") {
		t.Error("unlisted number should be denied")
	}
}

func TestEmptyAllowlistDeniesEveryone(t *testing.T) {
	a := NewAllowlist(nil, zap.NewNop())
	if a.IsAllowed("5511999999999@s.whatsapp.net") {
		t.Error("empty allowlist must deny everyone")
	}
}
