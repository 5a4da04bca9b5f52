package skill

import (
	"fmt"
	"sync"

	"github.com/openclaw/clawbot/internal/provider"
	"go.uber.org/zap"
)

// Registry is the central catalog of invocable skills. It is populated once
// at startup and read-mostly afterwards; lookups are safe for concurrent
// use.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	order  []string
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
		logger: logger,
	}
}

// Register validates and inserts a skill. Registering under an existing name
// overwrites the previous entry with a warning. Validation failures leave
// the registry unchanged and are treated as configuration errors by callers.
func (r *Registry) Register(s *Skill) error {
	if err := validateSkill(s); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Name]; exists {
		r.logger.Warn("skill already registered, overwriting", zap.String("skill", s.Name))
	} else {
		r.order = append(r.order, s.Name)
	}
	r.skills[s.Name] = s
	r.logger.Info("registered skill", zap.String("skill", s.Name))
	return nil
}

// RegisterAll registers a batch of skills, stopping at the first failure.
func (r *Registry) RegisterAll(skills ...*Skill) error {
	for _, s := range skills {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a skill by name. It never fails; absence is reported by the
// second return value.
func (r *Registry) Get(name string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// All returns every registered skill in registration order.
func (r *Registry) All() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Skill, 0, len(r.skills))
	for _, name := range r.order {
		out = append(out, r.skills[name])
	}
	return out
}

// Len returns the number of distinct registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// ToolManifest projects every registered skill into the function-calling
// wire shape. Pure projection, no side effects.
func (r *Registry) ToolManifest() []provider.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.Tool, 0, len(r.skills))
	for _, name := range r.order {
		s := r.skills[name]
		out = append(out, provider.Tool{
			Type: "function",
			Function: provider.ToolFunction{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}

func validateSkill(s *Skill) error {
	if s == nil {
		return fmt.Errorf("invalid skill: nil")
	}
	if s.Name == "" {
		return fmt.Errorf("invalid skill: name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("invalid skill %q: description is required", s.Name)
	}
	if s.Parameters == nil {
		return fmt.Errorf("invalid skill %q: parameter schema is required", s.Name)
	}
	if s.Execute == nil {
		return fmt.Errorf("invalid skill %q: execute function is required", s.Name)
	}
	return nil
}
