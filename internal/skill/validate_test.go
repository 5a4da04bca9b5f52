package skill

import (
	"context"
	"testing"
)

func schemaSkill(params map[string]any) *Skill {
	return &Skill{
		Name:        "probe",
		Description: "schema probe",
		Parameters:  params,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, nil
		},
	}
}

func TestValidateArgsRequired(t *testing.T) {
	s := schemaSkill(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	})

	if err := ValidateArgs(s, map[string]any{"query": "golang"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateArgs(s, map[string]any{}); err == nil {
		t.Error("expected error for missing required argument")
	}
}

func TestValidateArgsRequiredFromJSON(t *testing.T) {
	// Schemas that round-tripped through JSON carry required as []any.
	s := schemaSkill(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	})

	if err := ValidateArgs(s, map[string]any{}); err == nil {
		t.Error("expected error for missing required argument")
	}
}

func TestValidateArgsTypes(t *testing.T) {
	s := schemaSkill(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"count":   map[string]any{"type": "integer"},
			"ratio":   map[string]any{"type": "number"},
			"enabled": map[string]any{"type": "boolean"},
			"tags":    map[string]any{"type": "array"},
			"meta":    map[string]any{"type": "object"},
		},
	})

	valid := map[string]any{
		"name":    "x",
		"count":   float64(3), // JSON numbers decode as float64
		"ratio":   1.5,
		"enabled": true,
		"tags":    []any{"a"},
		"meta":    map[string]any{"k": "v"},
	}
	if err := ValidateArgs(s, valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := []map[string]any{
		{"name": 42},
		{"count": 1.5},
		{"ratio": "high"},
		{"enabled": "yes"},
		{"tags": "a,b"},
		{"meta": []any{}},
	}
	for _, args := range bad {
		if err := ValidateArgs(s, args); err == nil {
			t.Errorf("expected type error for %v", args)
		}
	}
}

func TestValidateArgsToleratesUnknown(t *testing.T) {
	s := schemaSkill(map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	})
	if err := ValidateArgs(s, map[string]any{"hallucinated": true}); err != nil {
		t.Errorf("unknown arguments should be tolerated, got %v", err)
	}
}
