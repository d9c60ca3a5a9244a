package engine

import "time"

// Metadata is the engine-owned bookkeeping attached to every document.
type Metadata struct {
	// CreatedAt is set once, on successful create.
	CreatedAt time.Time

	// UpdatedAt moves strictly forward on every successful update.
	UpdatedAt time.Time

	// Version starts at 1 and increments by exactly one per update.
	Version uint64
}

// Document is one stored record: an immutable id, an object-shaped value,
// and metadata. The storage engine exclusively owns document lifetime;
// indexes only ever hold the id.
type Document struct {
	DocumentID string
	Value      Value
	Metadata   Metadata
}

// Clone deep-copies the document so callers can hold results without
// aliasing the authoritative table.
func (d *Document) Clone() *Document {
	return &Document{
		DocumentID: d.DocumentID,
		Value:      d.Value.Clone(),
		Metadata:   d.Metadata,
	}
}

// Field extracts a top-level field from the document value.
func (d *Document) Field(name string) (Value, bool) {
	obj, ok := d.Value.AsObject()
	if !ok {
		return Null(), false
	}
	return obj.Get(name)
}
