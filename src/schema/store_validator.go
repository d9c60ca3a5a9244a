package schema

import "meridiandb/src/engine"

// StoreValidator adapts the registry and validation engine into the
// storage engine's write gate. Collections without a registered schema,
// or with validation disabled, accept everything.
type StoreValidator struct {
	registry *SchemaRegistry
	engine   *ValidationEngine
}

func NewStoreValidator(registry *SchemaRegistry, validationEngine *ValidationEngine) *StoreValidator {
	return &StoreValidator{
		registry: registry,
		engine:   validationEngine,
	}
}

func (sv *StoreValidator) ValidateDocument(collection string, v engine.Value) error {
	entry, ok := sv.registry.Get(collection)
	if !ok || !entry.Enabled {
		return nil
	}
	res := sv.engine.ValidateWithConfig(entry.Schema, v, entry.Config)
	return res.Err(entry.Schema.Name)
}
