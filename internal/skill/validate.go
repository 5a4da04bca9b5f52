package skill

import "fmt"

// ValidateArgs checks parsed tool-call arguments against the skill's
// declared schema: required properties must be present and values must match
// the declared primitive type. It covers the JSON Schema subset that
// function-calling providers accept; unknown constraints are ignored.
// Violations are reported as errors so the caller can route them into the
// tool-result error channel instead of invoking the skill.
func ValidateArgs(s *Skill, args map[string]any) error {
	schema := s.Parameters
	props, _ := schema["properties"].(map[string]any)

	for _, name := range requiredNames(schema["required"]) {
		if _, present := args[name]; !present {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	for name, value := range args {
		propRaw, ok := props[name]
		if !ok {
			// Models routinely hallucinate extra arguments; tolerate them.
			continue
		}
		prop, ok := propRaw.(map[string]any)
		if !ok {
			continue
		}
		declared, ok := prop["type"].(string)
		if !ok || value == nil {
			continue
		}
		if err := checkType(name, declared, value); err != nil {
			return err
		}
	}
	return nil
}

// requiredNames accepts both []string (schemas written in Go) and []any
// (schemas decoded from JSON).
func requiredNames(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		names := make([]string, 0, len(v))
		for _, r := range v {
			if name, ok := r.(string); ok {
				names = append(names, name)
			}
		}
		return names
	}
	return nil
}

func checkType(name, declared string, value any) error {
	ok := true
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "integer":
		f, isNum := value.(float64)
		ok = isNum && f == float64(int64(f))
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]any)
	case "array":
		_, ok = value.([]any)
	}
	if !ok {
		return fmt.Errorf("argument %q must be of type %s", name, declared)
	}
	return nil
}
