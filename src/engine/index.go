package engine

import "iter"

// IndexKind distinguishes the two index variants.
type IndexKind int

const (
	IndexKindHash IndexKind = iota
	IndexKindOrdered
)

func (k IndexKind) String() string {
	switch k {
	case IndexKindHash:
		return "hash"
	case IndexKindOrdered:
		return "ordered"
	default:
		return "unknown"
	}
}

// Index is the shared contract of the per-column lookup structures.
// Indexes hold only document ids, never document values, so they can
// never drift from the authoritative table. Mutations are guarded by the
// storage engine's per-collection lock but each index also carries its
// own lock so probes stay safe during concurrent reads.
type Index interface {
	Column() string
	Kind() IndexKind

	// Insert files docID under the value's key. A unique index returns
	// *IndexConstraintError when the key is already taken by another
	// document.
	Insert(v Value, docID string) error

	// Remove unfiles docID from the value's key. Removing an absent
	// entry is a no-op.
	Remove(v Value, docID string)

	// Update moves docID from the old key to the new one atomically: a
	// concurrent probe observes either the old entry or the new one,
	// never neither.
	Update(oldValue, newValue Value, docID string) error

	// ProbeEqual returns the ids filed under the value's key, in
	// insertion order.
	ProbeEqual(v Value) []string

	Len() int
}

// OrderedIndex is the range-capable variant.
type OrderedIndex interface {
	Index

	// Range yields document ids in ascending key order for keys between
	// the bounds. A nil bound is open on that side.
	Range(lower, upper *Value, includeLower, includeUpper bool) iter.Seq[string]
}
