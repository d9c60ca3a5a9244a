package hashindex

import (
	"time"

	"go.uber.org/zap"

	"meridiandb/src/engine"
)

// NewHashIndex creates an empty hash index on one column of a collection.
func NewHashIndex(collection, column string, unique bool, logger *zap.SugaredLogger) *HashIndex {
	return &HashIndex{
		collection: collection,
		column:     column,
		unique:     unique,
		entries:    make(map[string][]string),
		created:    time.Now(),
		logger:     logger,
	}
}

func (idx *HashIndex) Collection() string     { return idx.collection }
func (idx *HashIndex) Column() string         { return idx.column }
func (idx *HashIndex) Kind() engine.IndexKind { return engine.IndexKindHash }
func (idx *HashIndex) Unique() bool           { return idx.unique }

// Insert files docID under the value's canonical key. On a unique index
// a second document for the same key is rejected.
func (idx *HashIndex) Insert(v engine.Value, docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertLocked(v, docID)
}

func (idx *HashIndex) insertLocked(v engine.Value, docID string) error {
	key := v.CanonicalString()
	ids := idx.entries[key]

	for _, existing := range ids {
		if existing == docID {
			return nil
		}
	}
	if idx.unique && len(ids) > 0 {
		return &engine.IndexConstraintError{
			Collection: idx.collection,
			Column:     idx.column,
			Key:        v.String(),
			DocumentID: docID,
		}
	}

	idx.entries[key] = append(ids, docID)
	idx.count++
	return nil
}

// Remove unfiles docID from the value's key. Empty keys are dropped so
// the map does not accumulate tombstones.
func (idx *HashIndex) Remove(v engine.Value, docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(v, docID)
}

func (idx *HashIndex) removeLocked(v engine.Value, docID string) {
	key := v.CanonicalString()
	ids, ok := idx.entries[key]
	if !ok {
		return
	}
	for i, existing := range ids {
		if existing == docID {
			ids = append(ids[:i], ids[i+1:]...)
			idx.count--
			break
		}
	}
	if len(ids) == 0 {
		delete(idx.entries, key)
	} else {
		idx.entries[key] = ids
	}
}

// Update moves docID between keys under one lock, so a concurrent probe
// sees the old entry or the new one, never neither. On a uniqueness
// rejection the old entry is restored.
func (idx *HashIndex) Update(oldValue, newValue engine.Value, docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if oldValue.Equal(newValue) {
		return nil
	}

	idx.removeLocked(oldValue, docID)
	if err := idx.insertLocked(newValue, docID); err != nil {
		if restoreErr := idx.insertLocked(oldValue, docID); restoreErr != nil && idx.logger != nil {
			idx.logger.Errorw("Failed to restore hash index entry after rejected update",
				"collection", idx.collection,
				"column", idx.column,
				"documentID", docID,
				"error", restoreErr)
		}
		return err
	}
	return nil
}

// ProbeEqual returns the ids filed under the value's key, in insertion
// order.
func (idx *HashIndex) ProbeEqual(v engine.Value) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ids := idx.entries[v.CanonicalString()]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (idx *HashIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

func (idx *HashIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return IndexStats{
		Collection: idx.collection,
		Column:     idx.column,
		Unique:     idx.unique,
		Keys:       len(idx.entries),
		Entries:    idx.count,
		Created:    idx.created,
	}
}
