package schema

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"meridiandb/src/engine"
)

// ValidationContext is handed to custom validators: the path of the field
// under inspection and the chain of ancestor values from the document
// root down to (not including) the value itself.
type ValidationContext struct {
	Path      string
	Ancestors []engine.Value
}

// CustomValidator is one named, reusable validation capability. A
// FieldConstraint references validators by name; the registry resolves
// them at validation time.
type CustomValidator interface {
	Name() string
	Validate(v engine.Value, ctx *ValidationContext) error
}

type funcValidator struct {
	name string
	fn   func(v engine.Value, ctx *ValidationContext) error
}

func (f *funcValidator) Name() string { return f.name }

func (f *funcValidator) Validate(v engine.Value, ctx *ValidationContext) error {
	return f.fn(v, ctx)
}

// ValidatorFunc wraps a plain function as a CustomValidator.
func ValidatorFunc(name string, fn func(v engine.Value, ctx *ValidationContext) error) CustomValidator {
	return &funcValidator{name: name, fn: fn}
}

// ValidatorRegistry is the named registry of custom validators, safe for
// concurrent use.
type ValidatorRegistry struct {
	mu         sync.RWMutex
	validators map[string]CustomValidator
	logger     *zap.SugaredLogger
}

func NewValidatorRegistry(logger *zap.SugaredLogger) *ValidatorRegistry {
	return &ValidatorRegistry{
		validators: make(map[string]CustomValidator),
		logger:     logger,
	}
}

func (r *ValidatorRegistry) Register(v CustomValidator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[v.Name()]; exists {
		return fmt.Errorf("validator %q already registered", v.Name())
	}
	r.validators[v.Name()] = v

	if r.logger != nil {
		r.logger.Infow("Registered custom validator", "name", v.Name())
	}
	return nil
}

func (r *ValidatorRegistry) Lookup(name string) (CustomValidator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[name]
	return v, ok
}

func (r *ValidatorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.validators)
}
