package btreeindex

import (
	"iter"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"meridiandb/src/engine"
)

// BTreeIndex is the ordered, range-capable index variant: a sorted key
// list over the total value order, with ids filed per key in insertion
// order. Keys of mixed types order by cross-type rank, which is
// well-defined but only meaningful on homogeneous columns.
type BTreeIndex struct {
	mu         sync.RWMutex
	collection string
	column     string
	unique     bool
	keys       []engine.Value
	ids        map[string][]string
	count      int
	created    time.Time
	logger     *zap.SugaredLogger
}

// NewBTreeIndex creates an empty ordered index on one column of a
// collection.
func NewBTreeIndex(collection, column string, unique bool, logger *zap.SugaredLogger) *BTreeIndex {
	return &BTreeIndex{
		collection: collection,
		column:     column,
		unique:     unique,
		ids:        make(map[string][]string),
		created:    time.Now(),
		logger:     logger,
	}
}

func (idx *BTreeIndex) Collection() string     { return idx.collection }
func (idx *BTreeIndex) Column() string         { return idx.column }
func (idx *BTreeIndex) Kind() engine.IndexKind { return engine.IndexKindOrdered }
func (idx *BTreeIndex) Unique() bool           { return idx.unique }

// search returns the position of the first key >= v.
func (idx *BTreeIndex) search(v engine.Value) int {
	return sort.Search(len(idx.keys), func(i int) bool {
		return engine.CompareValues(idx.keys[i], v) >= 0
	})
}

func (idx *BTreeIndex) Insert(v engine.Value, docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.insertLocked(v, docID)
}

func (idx *BTreeIndex) insertLocked(v engine.Value, docID string) error {
	key := v.CanonicalString()
	existing := idx.ids[key]

	for _, id := range existing {
		if id == docID {
			return nil
		}
	}
	if idx.unique && len(existing) > 0 {
		return &engine.IndexConstraintError{
			Collection: idx.collection,
			Column:     idx.column,
			Key:        v.String(),
			DocumentID: docID,
		}
	}

	if len(existing) == 0 {
		pos := idx.search(v)
		idx.keys = append(idx.keys, engine.Value{})
		copy(idx.keys[pos+1:], idx.keys[pos:])
		idx.keys[pos] = v.Clone()
	}
	idx.ids[key] = append(existing, docID)
	idx.count++
	return nil
}

func (idx *BTreeIndex) Remove(v engine.Value, docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(v, docID)
}

func (idx *BTreeIndex) removeLocked(v engine.Value, docID string) {
	key := v.CanonicalString()
	existing, ok := idx.ids[key]
	if !ok {
		return
	}
	for i, id := range existing {
		if id == docID {
			existing = append(existing[:i], existing[i+1:]...)
			idx.count--
			break
		}
	}
	if len(existing) > 0 {
		idx.ids[key] = existing
		return
	}

	delete(idx.ids, key)
	pos := idx.search(v)
	if pos < len(idx.keys) && idx.keys[pos].Equal(v) {
		idx.keys = append(idx.keys[:pos], idx.keys[pos+1:]...)
	}
}

// Update moves docID between keys under one lock. On a uniqueness
// rejection the old entry is restored before returning the error.
func (idx *BTreeIndex) Update(oldValue, newValue engine.Value, docID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if oldValue.Equal(newValue) {
		return nil
	}

	idx.removeLocked(oldValue, docID)
	if err := idx.insertLocked(newValue, docID); err != nil {
		if restoreErr := idx.insertLocked(oldValue, docID); restoreErr != nil && idx.logger != nil {
			idx.logger.Errorw("Failed to restore ordered index entry after rejected update",
				"collection", idx.collection,
				"column", idx.column,
				"documentID", docID,
				"error", restoreErr)
		}
		return err
	}
	return nil
}

func (idx *BTreeIndex) ProbeEqual(v engine.Value) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	existing := idx.ids[v.CanonicalString()]
	out := make([]string, len(existing))
	copy(out, existing)
	return out
}

// Range yields document ids in ascending key order for keys between the
// bounds; a nil bound leaves that side open. The matching ids are
// snapshotted under the read lock, then yielded lazily.
func (idx *BTreeIndex) Range(lower, upper *engine.Value, includeLower, includeUpper bool) iter.Seq[string] {
	idx.mu.RLock()

	start := 0
	if lower != nil {
		start = idx.search(*lower)
		if !includeLower {
			for start < len(idx.keys) && idx.keys[start].Equal(*lower) {
				start++
			}
		}
	}

	end := len(idx.keys)
	if upper != nil {
		end = idx.search(*upper)
		if includeUpper {
			for end < len(idx.keys) && idx.keys[end].Equal(*upper) {
				end++
			}
		}
	}

	var matched []string
	for i := start; i < end && i < len(idx.keys); i++ {
		matched = append(matched, idx.ids[idx.keys[i].CanonicalString()]...)
	}
	idx.mu.RUnlock()

	return func(yield func(string) bool) {
		for _, id := range matched {
			if !yield(id) {
				return
			}
		}
	}
}

func (idx *BTreeIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// KeyCount returns the number of distinct keys currently indexed.
func (idx *BTreeIndex) KeyCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.keys)
}
