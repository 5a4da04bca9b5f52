package skill

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func testSkill(name string) *Skill {
	return &Skill{
		Name:        name,
		Description: "test skill " + name,
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return "ok", nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	if err := reg.Register(testSkill("date")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, ok := reg.Get("date")
	if !ok {
		t.Fatal("expected skill to be registered")
	}
	if s.Name != "date" {
		t.Errorf("got %q, want %q", s.Name, "date")
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("expected lookup miss for unregistered skill")
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	cases := []struct {
		name  string
		skill *Skill
	}{
		{"nil skill", nil},
		{"empty name", &Skill{Description: "d", Parameters: map[string]any{}, Execute: testSkill("x").Execute}},
		{"empty description", &Skill{Name: "n", Parameters: map[string]any{}, Execute: testSkill("x").Execute}},
		{"nil parameters", &Skill{Name: "n", Description: "d", Execute: testSkill("x").Execute}},
		{"nil execute", &Skill{Name: "n", Description: "d", Parameters: map[string]any{}}},
	}
	for _, tc := range cases {
		if err := reg.Register(tc.skill); err == nil {
			t.Errorf("%s: expected registration error", tc.name)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("registry should be unchanged after failed registrations, got %d skills", reg.Len())
	}
}

func TestRegisterOverwrite(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	first := testSkill("search")
	second := testSkill("search")
	second.Description = "replacement"

	if err := reg.Register(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(second); err != nil {
		t.Fatalf("overwrite should succeed: %v", err)
	}

	s, _ := reg.Get("search")
	if s.Description != "replacement" {
		t.Errorf("got %q, want the replacement skill", s.Description)
	}
	if reg.Len() != 1 {
		t.Errorf("got %d skills, want 1", reg.Len())
	}
}

func TestToolManifest(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	if err := reg.RegisterAll(testSkill("a"), testSkill("b"), testSkill("c")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manifest := reg.ToolManifest()
	if len(manifest) != 3 {
		t.Fatalf("got %d tools, want 3", len(manifest))
	}
	// Manifest preserves registration order.
	for i, want := range []string{"a", "b", "c"} {
		if manifest[i].Function.Name != want {
			t.Errorf("tool %d: got %q, want %q", i, manifest[i].Function.Name, want)
		}
		if manifest[i].Type != "function" {
			t.Errorf("tool %d: got type %q, want %q", i, manifest[i].Type, "function")
		}
		if manifest[i].Function.Description == "" {
			t.Errorf("tool %d: missing description", i)
		}
	}
}
