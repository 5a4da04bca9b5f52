package skill

import "context"

// Skill is a named, schema-described capability the model can invoke.
// Parameters follows the JSON Schema subset understood by function-calling
// APIs: {"type":"object","properties":{...},"required":[...]}.
type Skill struct {
	Name        string
	Description string
	Parameters  map[string]any
	Execute     func(ctx context.Context, args map[string]any) (any, error)
}
