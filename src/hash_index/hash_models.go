package hashindex

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// IndexStats describes the current shape of a hash index.
type IndexStats struct {
	Collection string
	Column     string
	Unique     bool
	Keys       int
	Entries    int
	Created    time.Time
}

// HashIndex is the in-memory equality index: canonical key -> document
// ids in insertion order. Probes are O(1) on average; range scans are not
// supported by this variant.
type HashIndex struct {
	mu         sync.RWMutex
	collection string
	column     string
	unique     bool
	entries    map[string][]string
	count      int
	created    time.Time
	logger     *zap.SugaredLogger
}
