package schema

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// RegistryEntry binds a collection to its schema, configuration and
// enabled flag. Entries are immutable once published: every registry
// mutation swaps in a fresh entry, so a reader holding a pointer always
// sees a consistent (schema, config, enabled) triple.
type RegistryEntry struct {
	Collection string
	Schema     *Schema
	Config     ValidationConfig
	Enabled    bool
}

// RegistryStats summarizes the registry for monitoring.
type RegistryStats struct {
	TotalCollections   int
	EnabledCollections int
}

// SchemaRegistry maps collection names to their active schema. Reads are
// concurrent; writes are entry-granular, so updating collection A never
// blocks traffic against collection B beyond the brief map swap.
type SchemaRegistry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
	logger  *zap.SugaredLogger
}

func NewSchemaRegistry(logger *zap.SugaredLogger) *SchemaRegistry {
	return &SchemaRegistry{
		entries: make(map[string]*RegistryEntry),
		logger:  logger,
	}
}

// Register installs a schema for a collection. cfg overrides the schema's
// own config when non-nil. Registering over an existing entry fails with
// ErrDuplicateSchema unless replace is set.
func (r *SchemaRegistry) Register(collection string, s *Schema, cfg *ValidationConfig, replace bool) error {
	if s == nil {
		return fmt.Errorf("schema for collection %q must not be nil", collection)
	}

	config := s.Config
	if cfg != nil {
		config = *cfg
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[collection]; exists && !replace {
		return fmt.Errorf("collection %q: %w", collection, ErrDuplicateSchema)
	}

	r.entries[collection] = &RegistryEntry{
		Collection: collection,
		Schema:     s,
		Config:     config,
		Enabled:    true,
	}

	if r.logger != nil {
		r.logger.Infow("Registered schema",
			"collection", collection,
			"schema", s.Name,
			"version", s.Version)
	}
	return nil
}

// Update atomically swaps the schema for a collection, preserving the
// entry's config and enabled flag. Readers never observe a half-updated
// entry.
func (r *SchemaRegistry) Update(collection string, s *Schema) error {
	if s == nil {
		return fmt.Errorf("schema for collection %q must not be nil", collection)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.entries[collection]
	if !exists {
		return fmt.Errorf("collection %q: %w", collection, ErrSchemaNotFound)
	}

	r.entries[collection] = &RegistryEntry{
		Collection: collection,
		Schema:     s,
		Config:     old.Config,
		Enabled:    old.Enabled,
	}

	if r.logger != nil {
		r.logger.Infow("Updated schema",
			"collection", collection,
			"schema", s.Name,
			"version", s.Version)
	}
	return nil
}

// UpdateConfig swaps the validation configuration for a collection.
func (r *SchemaRegistry) UpdateConfig(collection string, cfg ValidationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.entries[collection]
	if !exists {
		return fmt.Errorf("collection %q: %w", collection, ErrSchemaNotFound)
	}

	r.entries[collection] = &RegistryEntry{
		Collection: collection,
		Schema:     old.Schema,
		Config:     cfg,
		Enabled:    old.Enabled,
	}
	return nil
}

// Enable turns validation on for a collection. Idempotent.
func (r *SchemaRegistry) Enable(collection string) error {
	return r.setEnabled(collection, true)
}

// Disable turns validation off for a collection. Idempotent: disabling a
// disabled collection is a no-op.
func (r *SchemaRegistry) Disable(collection string) error {
	return r.setEnabled(collection, false)
}

func (r *SchemaRegistry) setEnabled(collection string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.entries[collection]
	if !exists {
		return fmt.Errorf("collection %q: %w", collection, ErrSchemaNotFound)
	}
	if old.Enabled == enabled {
		return nil
	}

	r.entries[collection] = &RegistryEntry{
		Collection: collection,
		Schema:     old.Schema,
		Config:     old.Config,
		Enabled:    enabled,
	}

	if r.logger != nil {
		r.logger.Infow("Changed validation state",
			"collection", collection,
			"enabled", enabled)
	}
	return nil
}

// Get returns the published entry for a collection. The returned entry
// must be treated as read-only.
func (r *SchemaRegistry) Get(collection string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[collection]
	return entry, ok
}

// Remove deletes a collection's schema and reports whether one existed.
func (r *SchemaRegistry) Remove(collection string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.entries[collection]
	delete(r.entries, collection)
	return existed
}

// Collections lists registered collection names, sorted.
func (r *SchemaRegistry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *SchemaRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{TotalCollections: len(r.entries)}
	for _, entry := range r.entries {
		if entry.Enabled {
			stats.EnabledCollections++
		}
	}
	return stats
}
