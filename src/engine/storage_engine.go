package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DocumentValidator gates writes. The schema layer provides the real
// implementation; a nil validator admits everything.
type DocumentValidator interface {
	ValidateDocument(collection string, v Value) error
}

// ChangeOp labels a change record by what the mutation did.
type ChangeOp string

const (
	ChangeOpCreate ChangeOp = "create"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

// ChangeRecord describes one committed mutation. Before and After are
// nil for the side that does not exist (Before on create, After on
// delete).
type ChangeRecord struct {
	Collection string
	Operation  ChangeOp
	DocumentID string
	Before     *Value
	After      *Value
	Version    uint64
	Timestamp  time.Time
}

// ChangeSink receives committed change records in commit order. Sinks
// are called while the collection lock is held, so a slow sink slows
// writers; implementations should stay cheap or buffer internally.
type ChangeSink interface {
	Append(record ChangeRecord) error
}

// collection is one named document space: the authoritative table plus
// its secondary indexes, guarded by a single lock. Mutations against
// different collections never contend.
type collection struct {
	name    string
	mu      sync.RWMutex
	table   *DocumentTable
	indexes []Index
}

func (c *collection) indexFor(column string) Index {
	for _, idx := range c.indexes {
		if idx.Column() == column {
			return idx
		}
	}
	return nil
}

// StorageEngine is the in-memory document store: schema-validated
// writes, id reads, equality and range queries through secondary
// indexes. All mutations are all-or-nothing with respect to the table
// and every index on the collection.
type StorageEngine struct {
	mu          sync.RWMutex
	collections map[string]*collection
	validator   DocumentValidator
	factory     DocumentFactory
	sink        ChangeSink
	logger      *zap.SugaredLogger
}

func NewStorageEngine(validator DocumentValidator, factory DocumentFactory, logger *zap.SugaredLogger) *StorageEngine {
	return &StorageEngine{
		collections: make(map[string]*collection),
		validator:   validator,
		factory:     factory,
		logger:      logger,
	}
}

// SetChangeSink attaches a sink for committed mutations. Pass nil to
// detach.
func (se *StorageEngine) SetChangeSink(sink ChangeSink) {
	se.mu.Lock()
	defer se.mu.Unlock()
	se.sink = sink
}

func (se *StorageEngine) getCollection(name string) (*collection, bool) {
	se.mu.RLock()
	defer se.mu.RUnlock()
	coll, ok := se.collections[name]
	return coll, ok
}

func (se *StorageEngine) getOrCreateCollection(name string) *collection {
	se.mu.Lock()
	defer se.mu.Unlock()
	if coll, ok := se.collections[name]; ok {
		return coll
	}
	coll := &collection{name: name, table: NewDocumentTable()}
	se.collections[name] = coll
	return coll
}

// validate runs the write gate against the value. Validation holds no
// collection lock.
func (se *StorageEngine) validate(collectionName string, v Value) error {
	if se.validator == nil {
		return nil
	}
	return se.validator.ValidateDocument(collectionName, v)
}

// Create validates the value, mints a new document and installs it in
// the table and every index. On any index rejection the whole mutation
// unwinds and the store is untouched.
func (se *StorageEngine) Create(collectionName string, value Value) (*Document, error) {
	if _, ok := value.AsObject(); !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrInvalidDocument)
	}
	if err := se.validate(collectionName, value); err != nil {
		return nil, err
	}

	doc := se.factory.NewDocument(value.Clone())
	coll := se.getOrCreateCollection(collectionName)

	coll.mu.Lock()
	defer coll.mu.Unlock()

	coll.table.Insert(doc)

	var applied []Index
	for _, idx := range coll.indexes {
		fieldValue, present := doc.Field(idx.Column())
		if !present {
			continue
		}
		if err := idx.Insert(fieldValue, doc.DocumentID); err != nil {
			se.unwindInserts(doc, applied)
			coll.table.Remove(doc.DocumentID)
			return nil, fmt.Errorf("create in collection %q: %w", collectionName, err)
		}
		applied = append(applied, idx)
	}

	se.emit(ChangeRecord{
		Collection: collectionName,
		Operation:  ChangeOpCreate,
		DocumentID: doc.DocumentID,
		After:      cloneValuePtr(doc.Value),
		Version:    doc.Metadata.Version,
		Timestamp:  doc.Metadata.CreatedAt,
	})

	if se.logger != nil {
		se.logger.Debugw("Created document",
			"collection", collectionName,
			"documentID", doc.DocumentID)
	}
	return doc.Clone(), nil
}

func (se *StorageEngine) unwindInserts(doc *Document, applied []Index) {
	for i := len(applied) - 1; i >= 0; i-- {
		fieldValue, present := doc.Field(applied[i].Column())
		if !present {
			continue
		}
		applied[i].Remove(fieldValue, doc.DocumentID)
	}
}

// Read returns a deep copy of the document, so the caller can never
// alias the authoritative value.
func (se *StorageEngine) Read(collectionName, documentID string) (*Document, error) {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	doc, ok := coll.table.Get(documentID)
	if !ok {
		return nil, fmt.Errorf("collection %q, document %q: %w", collectionName, documentID, ErrNotFound)
	}
	return doc.Clone(), nil
}

// Update applies the mutator to a copy of the stored value, validates
// the result, then swaps the document in under the collection lock. The
// version increments by one and UpdatedAt moves strictly forward even
// when the wall clock has not. Index maintenance is all-or-nothing: a
// uniqueness rejection restores every touched index and leaves the old
// document in place. The mutator runs unlocked; when a concurrent
// update lands first, the mutator reruns against the fresh value so no
// interleaved write is silently discarded.
func (se *StorageEngine) Update(collectionName, documentID string, mutate func(Value) (Value, error)) (*Document, error) {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	for {
		coll.mu.RLock()
		current, ok := coll.table.Get(documentID)
		if !ok {
			coll.mu.RUnlock()
			return nil, fmt.Errorf("collection %q, document %q: %w", collectionName, documentID, ErrNotFound)
		}
		prev := current.Clone()
		coll.mu.RUnlock()

		newValue, err := mutate(prev.Value.Clone())
		if err != nil {
			return nil, fmt.Errorf("update in collection %q: %w", collectionName, err)
		}
		if _, ok := newValue.AsObject(); !ok {
			return nil, fmt.Errorf("collection %q: %w", collectionName, ErrInvalidDocument)
		}
		if err := se.validate(collectionName, newValue); err != nil {
			return nil, err
		}

		coll.mu.Lock()

		// Re-read under the write lock: the document may have moved on
		// or vanished while the mutator ran.
		stored, ok := coll.table.Get(documentID)
		if !ok {
			coll.mu.Unlock()
			return nil, fmt.Errorf("collection %q, document %q: %w", collectionName, documentID, ErrNotFound)
		}
		if stored.Metadata.Version != prev.Metadata.Version {
			coll.mu.Unlock()
			continue
		}

		now := time.Now()
		if !now.After(stored.Metadata.UpdatedAt) {
			now = stored.Metadata.UpdatedAt.Add(time.Nanosecond)
		}
		next := &Document{
			DocumentID: stored.DocumentID,
			Value:      newValue.Clone(),
			Metadata: Metadata{
				CreatedAt: stored.Metadata.CreatedAt,
				UpdatedAt: now,
				Version:   stored.Metadata.Version + 1,
			},
		}

		if err := se.reindex(coll, stored, next); err != nil {
			coll.mu.Unlock()
			return nil, fmt.Errorf("update in collection %q: %w", collectionName, err)
		}
		coll.table.Replace(next)

		se.emit(ChangeRecord{
			Collection: collectionName,
			Operation:  ChangeOpUpdate,
			DocumentID: documentID,
			Before:     cloneValuePtr(stored.Value),
			After:      cloneValuePtr(next.Value),
			Version:    next.Metadata.Version,
			Timestamp:  next.Metadata.UpdatedAt,
		})
		coll.mu.Unlock()

		if se.logger != nil {
			se.logger.Debugw("Updated document",
				"collection", collectionName,
				"documentID", documentID,
				"version", next.Metadata.Version)
		}
		return next.Clone(), nil
	}
}

// indexStep records one applied index mutation so a later failure can
// play the inverse operations in reverse order.
type indexStep struct {
	idx        Index
	oldValue   Value
	newValue   Value
	hadOld     bool
	hadNew     bool
	documentID string
}

func (s indexStep) undo() error {
	switch {
	case s.hadOld && s.hadNew:
		return s.idx.Update(s.newValue, s.oldValue, s.documentID)
	case s.hadOld:
		return s.idx.Insert(s.oldValue, s.documentID)
	case s.hadNew:
		s.idx.Remove(s.newValue, s.documentID)
	}
	return nil
}

// reindex moves a document between index keys across every index on the
// collection. Four cases per index: both values present, only the old,
// only the new, neither.
func (se *StorageEngine) reindex(coll *collection, old, next *Document) error {
	var steps []indexStep
	for _, idx := range coll.indexes {
		oldValue, hadOld := old.Field(idx.Column())
		newValue, hadNew := next.Field(idx.Column())

		step := indexStep{
			idx:        idx,
			oldValue:   oldValue,
			newValue:   newValue,
			hadOld:     hadOld,
			hadNew:     hadNew,
			documentID: old.DocumentID,
		}

		var err error
		switch {
		case hadOld && hadNew:
			err = idx.Update(oldValue, newValue, old.DocumentID)
		case hadOld:
			idx.Remove(oldValue, old.DocumentID)
		case hadNew:
			err = idx.Insert(newValue, old.DocumentID)
		default:
			continue
		}

		if err != nil {
			var rollback error
			for i := len(steps) - 1; i >= 0; i-- {
				rollback = multierr.Append(rollback, steps[i].undo())
			}
			if rollback != nil && se.logger != nil {
				se.logger.Errorw("Rollback after rejected reindex left residue",
					"collection", coll.name,
					"documentID", old.DocumentID,
					"error", rollback)
			}
			return err
		}
		steps = append(steps, step)
	}
	return nil
}

// Delete removes the document from the table and every index.
func (se *StorageEngine) Delete(collectionName, documentID string) error {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()

	doc, ok := coll.table.Get(documentID)
	if !ok {
		return fmt.Errorf("collection %q, document %q: %w", collectionName, documentID, ErrNotFound)
	}

	for _, idx := range coll.indexes {
		if fieldValue, present := doc.Field(idx.Column()); present {
			idx.Remove(fieldValue, documentID)
		}
	}
	coll.table.Remove(documentID)

	se.emit(ChangeRecord{
		Collection: collectionName,
		Operation:  ChangeOpDelete,
		DocumentID: documentID,
		Before:     cloneValuePtr(doc.Value),
		Version:    doc.Metadata.Version,
		Timestamp:  time.Now(),
	})

	if se.logger != nil {
		se.logger.Debugw("Deleted document",
			"collection", collectionName,
			"documentID", documentID)
	}
	return nil
}

// QueryEqual finds documents whose column equals the value. With an
// index on the column the probe is direct; without one the table is
// scanned in insertion order.
func (se *StorageEngine) QueryEqual(collectionName, column string, value Value) ([]*Document, error) {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	if idx := coll.indexFor(column); idx != nil {
		ids := idx.ProbeEqual(value)
		out := make([]*Document, 0, len(ids))
		for _, id := range ids {
			if doc, ok := coll.table.Get(id); ok {
				out = append(out, doc.Clone())
			}
		}
		return out, nil
	}

	var out []*Document
	for _, doc := range coll.table.All() {
		if fieldValue, present := doc.Field(column); present && fieldValue.Equal(value) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// QueryRange finds documents whose column falls between the bounds, in
// ascending key order. Requires an ordered index on the column; there is
// no scan fallback.
func (se *StorageEngine) QueryRange(collectionName, column string, lower, upper *Value, includeLower, includeUpper bool) ([]*Document, error) {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	idx := coll.indexFor(column)
	ordered, ok := idx.(OrderedIndex)
	if idx == nil || !ok {
		return nil, fmt.Errorf("collection %q, column %q: %w", collectionName, column, ErrNoSuitableIndex)
	}

	var out []*Document
	for id := range ordered.Range(lower, upper, includeLower, includeUpper) {
		if doc, ok := coll.table.Get(id); ok {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// ListAll returns every document in the collection, in insertion order.
func (se *StorageEngine) ListAll(collectionName string) ([]*Document, error) {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", collectionName, ErrCollectionNotFound)
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	docs := coll.table.All()
	out := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Clone())
	}
	return out, nil
}

// Count returns the number of documents in the collection, zero for an
// unknown collection.
func (se *StorageEngine) Count(collectionName string) int {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return 0
	}
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return coll.table.Len()
}

// LoadResult pairs one bulk-load input with its outcome.
type LoadResult struct {
	Doc *Document
	Err error
}

// LoadMany creates documents in order, continuing past individual
// failures. The returned error aggregates every per-document failure;
// results holds one entry per input in the same order.
func (se *StorageEngine) LoadMany(collectionName string, values []Value) ([]LoadResult, error) {
	results := make([]LoadResult, 0, len(values))
	var errs error
	for i, value := range values {
		doc, err := se.Create(collectionName, value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("document %d: %w", i, err))
		}
		results = append(results, LoadResult{Doc: doc, Err: err})
	}
	if errs != nil && se.logger != nil {
		se.logger.Warnw("Bulk load finished with failures",
			"collection", collectionName,
			"total", len(values),
			"failed", len(multierr.Errors(errs)))
	}
	return results, errs
}

// RegisterIndex attaches an index to a collection and backfills it from
// the existing documents. A uniqueness conflict during backfill unwinds
// the partial fill and leaves the collection unindexed on that column.
func (se *StorageEngine) RegisterIndex(collectionName string, idx Index) error {
	coll := se.getOrCreateCollection(collectionName)

	coll.mu.Lock()
	defer coll.mu.Unlock()

	if coll.indexFor(idx.Column()) != nil {
		return fmt.Errorf("collection %q, column %q: %w", collectionName, idx.Column(), ErrIndexExists)
	}

	var filled []*Document
	for _, doc := range coll.table.All() {
		fieldValue, present := doc.Field(idx.Column())
		if !present {
			continue
		}
		if err := idx.Insert(fieldValue, doc.DocumentID); err != nil {
			for _, done := range filled {
				if v, ok := done.Field(idx.Column()); ok {
					idx.Remove(v, done.DocumentID)
				}
			}
			return fmt.Errorf("backfill index on %q.%q: %w", collectionName, idx.Column(), err)
		}
		filled = append(filled, doc)
	}

	coll.indexes = append(coll.indexes, idx)

	if se.logger != nil {
		se.logger.Infow("Registered index",
			"collection", collectionName,
			"column", idx.Column(),
			"kind", idx.Kind().String(),
			"entries", idx.Len())
	}
	return nil
}

// DropIndex detaches the index on a column and reports whether one
// existed.
func (se *StorageEngine) DropIndex(collectionName, column string) bool {
	coll, ok := se.getCollection(collectionName)
	if !ok {
		return false
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()

	for i, idx := range coll.indexes {
		if idx.Column() == column {
			coll.indexes = append(coll.indexes[:i], coll.indexes[i+1:]...)
			return true
		}
	}
	return false
}

// Collections lists known collection names, sorted.
func (se *StorageEngine) Collections() []string {
	se.mu.RLock()
	defer se.mu.RUnlock()

	names := make([]string, 0, len(se.collections))
	for name := range se.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (se *StorageEngine) emit(record ChangeRecord) {
	se.mu.RLock()
	sink := se.sink
	se.mu.RUnlock()

	if sink == nil {
		return
	}
	if err := sink.Append(record); err != nil && se.logger != nil {
		se.logger.Errorw("Change sink rejected record",
			"collection", record.Collection,
			"operation", record.Operation,
			"documentID", record.DocumentID,
			"error", err)
	}
}

func cloneValuePtr(v Value) *Value {
	c := v.Clone()
	return &c
}
