package directors

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	btreeindex "meridiandb/src/btree_index"
	"meridiandb/src/engine"
	hashindex "meridiandb/src/hash_index"
	"meridiandb/src/schema"
	"meridiandb/src/settings"
)

// CollectionService is the service layer over the storage engine: it
// owns schema registration, index creation and the document operations
// the server exposes.
type CollectionService struct {
	engine     *engine.StorageEngine
	registry   *schema.SchemaRegistry
	validators *schema.ValidatorRegistry
	settings   *settings.Arguments
	logger     *zap.SugaredLogger
}

func NewCollectionService(storageEngine *engine.StorageEngine,
	registry *schema.SchemaRegistry,
	validators *schema.ValidatorRegistry,
	logger *zap.SugaredLogger,
	settings *settings.Arguments) *CollectionService {
	return &CollectionService{
		engine:     storageEngine,
		registry:   registry,
		validators: validators,
		settings:   settings,
		logger:     logger,
	}
}

// RegisterSchema installs a schema for a collection. Fails on a
// duplicate unless replace is set.
func (s *CollectionService) RegisterSchema(collection string, sch *schema.Schema, cfg *schema.ValidationConfig, replace bool) error {
	if err := s.registry.Register(collection, sch, cfg, replace); err != nil {
		return fmt.Errorf("failed to register schema for collection '%s': %w", collection, err)
	}
	return nil
}

// UpdateSchema atomically swaps the schema for a collection.
func (s *CollectionService) UpdateSchema(collection string, sch *schema.Schema) error {
	if err := s.registry.Update(collection, sch); err != nil {
		return fmt.Errorf("failed to update schema for collection '%s': %w", collection, err)
	}
	return nil
}

func (s *CollectionService) EnableValidation(collection string) error {
	return s.registry.Enable(collection)
}

func (s *CollectionService) DisableValidation(collection string) error {
	return s.registry.Disable(collection)
}

func (s *CollectionService) RegistryStats() schema.RegistryStats {
	return s.registry.Stats()
}

// RegisterValidator adds a named custom validator available to every
// schema.
func (s *CollectionService) RegisterValidator(v schema.CustomValidator) error {
	return s.validators.Register(v)
}

// CreateHashIndex attaches an equality index on a column and backfills
// it from the existing documents.
func (s *CollectionService) CreateHashIndex(collection, column string, unique bool) error {
	idx := hashindex.NewHashIndex(collection, column, unique, s.logger)
	if err := s.engine.RegisterIndex(collection, idx); err != nil {
		return fmt.Errorf("failed to create hash index on '%s.%s': %w", collection, column, err)
	}
	return nil
}

// CreateOrderedIndex attaches a range-capable index on a column and
// backfills it from the existing documents.
func (s *CollectionService) CreateOrderedIndex(collection, column string, unique bool) error {
	idx := btreeindex.NewBTreeIndex(collection, column, unique, s.logger)
	if err := s.engine.RegisterIndex(collection, idx); err != nil {
		return fmt.Errorf("failed to create ordered index on '%s.%s': %w", collection, column, err)
	}
	return nil
}

func (s *CollectionService) DropIndex(collection, column string) bool {
	return s.engine.DropIndex(collection, column)
}

func (s *CollectionService) CreateDocument(collection string, value engine.Value) (*engine.Document, error) {
	doc, err := s.engine.Create(collection, value)
	if err != nil {
		return nil, err
	}
	if s.settings != nil && s.settings.Debug {
		s.logger.Infof("Created document '%s' in collection '%s'", doc.DocumentID, collection)
	}
	return doc, nil
}

func (s *CollectionService) GetDocument(collection, documentID string) (*engine.Document, error) {
	return s.engine.Read(collection, documentID)
}

func (s *CollectionService) UpdateDocument(collection, documentID string, mutate func(engine.Value) (engine.Value, error)) (*engine.Document, error) {
	doc, err := s.engine.Update(collection, documentID, mutate)
	if err != nil {
		return nil, err
	}
	if s.settings != nil && s.settings.Debug {
		s.logger.Infof("Updated document '%s' in collection '%s' to version %d", documentID, collection, doc.Metadata.Version)
	}
	return doc, nil
}

func (s *CollectionService) DeleteDocument(collection, documentID string) error {
	return s.engine.Delete(collection, documentID)
}

func (s *CollectionService) FindEqual(collection, column string, value engine.Value) ([]*engine.Document, error) {
	return s.engine.QueryEqual(collection, column, value)
}

func (s *CollectionService) FindRange(collection, column string, lower, upper *engine.Value, includeLower, includeUpper bool) ([]*engine.Document, error) {
	return s.engine.QueryRange(collection, column, lower, upper, includeLower, includeUpper)
}

func (s *CollectionService) ListDocuments(collection string) ([]*engine.Document, error) {
	return s.engine.ListAll(collection)
}

func (s *CollectionService) LoadDocuments(collection string, values []engine.Value) ([]engine.LoadResult, error) {
	return s.engine.LoadMany(collection, values)
}

// ExportCollection dumps a collection to a snapshot file under the
// configured data directory.
func (s *CollectionService) ExportCollection(collection, fileName string) error {
	snapshotter := engine.NewSnapshotter(s.engine, s.logger)
	path := fileName
	if s.settings != nil && s.settings.DataDir != "" {
		path = filepath.Join(s.settings.DataDir, fileName)
	}
	return snapshotter.ExportCollection(collection, path)
}

// ImportCollection loads a snapshot file back through the normal create
// path, so schemas and indexes apply.
func (s *CollectionService) ImportCollection(fileName string) (string, []engine.LoadResult, error) {
	snapshotter := engine.NewSnapshotter(s.engine, s.logger)
	path := fileName
	if s.settings != nil && s.settings.DataDir != "" {
		path = filepath.Join(s.settings.DataDir, fileName)
	}
	return snapshotter.ImportCollection(path)
}

func (s *CollectionService) Collections() []string {
	return s.engine.Collections()
}

func (s *CollectionService) CountDocuments(collection string) int {
	return s.engine.Count(collection)
}
