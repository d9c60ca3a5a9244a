package hashindex

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridiandb/src/engine"
)

func TestInsertAndProbe(t *testing.T) {
	idx := NewHashIndex("users", "email", false, nil)

	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc2"))
	require.NoError(t, idx.Insert(engine.String("b@x.com"), "doc3"))

	assert.Equal(t, []string{"doc1", "doc2"}, idx.ProbeEqual(engine.String("a@x.com")))
	assert.Equal(t, []string{"doc3"}, idx.ProbeEqual(engine.String("b@x.com")))
	assert.Empty(t, idx.ProbeEqual(engine.String("c@x.com")))
	assert.Equal(t, 3, idx.Len())
}

func TestInsertSameDocumentTwiceIsNoop(t *testing.T) {
	idx := NewHashIndex("users", "email", false, nil)

	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))

	assert.Equal(t, []string{"doc1"}, idx.ProbeEqual(engine.String("a@x.com")))
	assert.Equal(t, 1, idx.Len())
}

func TestUniqueConstraint(t *testing.T) {
	idx := NewHashIndex("users", "email", true, nil)

	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	err := idx.Insert(engine.String("a@x.com"), "doc2")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrIndexConstraint)

	var cerr *engine.IndexConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "users", cerr.Collection)
	assert.Equal(t, "email", cerr.Column)
	assert.Equal(t, "doc2", cerr.DocumentID)

	// Re-inserting the holder is still fine.
	assert.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
}

func TestKeysDistinguishTypes(t *testing.T) {
	idx := NewHashIndex("events", "code", false, nil)

	require.NoError(t, idx.Insert(engine.Number(1), "doc1"))
	require.NoError(t, idx.Insert(engine.String("1"), "doc2"))

	assert.Equal(t, []string{"doc1"}, idx.ProbeEqual(engine.Number(1)))
	assert.Equal(t, []string{"doc2"}, idx.ProbeEqual(engine.String("1")))
}

func TestNegativeZeroProbesBothSigns(t *testing.T) {
	idx := NewHashIndex("measurements", "offset", false, nil)

	require.NoError(t, idx.Insert(engine.Number(math.Copysign(0, -1)), "doc1"))
	require.NoError(t, idx.Insert(engine.Number(0), "doc2"))

	assert.Equal(t, []string{"doc1", "doc2"}, idx.ProbeEqual(engine.Number(0)))
	assert.Equal(t, []string{"doc1", "doc2"}, idx.ProbeEqual(engine.Number(math.Copysign(0, -1))))
	assert.Equal(t, 1, idx.Stats().Keys)
}

func TestRemoveCleansEmptyKeys(t *testing.T) {
	idx := NewHashIndex("users", "email", false, nil)

	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	idx.Remove(engine.String("a@x.com"), "doc1")

	assert.Empty(t, idx.ProbeEqual(engine.String("a@x.com")))
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Stats().Keys)

	// Removing an absent entry is a no-op.
	idx.Remove(engine.String("a@x.com"), "doc1")
	assert.Equal(t, 0, idx.Len())
}

func TestUpdateMovesBetweenKeys(t *testing.T) {
	idx := NewHashIndex("users", "email", false, nil)

	require.NoError(t, idx.Insert(engine.String("old@x.com"), "doc1"))
	require.NoError(t, idx.Update(engine.String("old@x.com"), engine.String("new@x.com"), "doc1"))

	assert.Empty(t, idx.ProbeEqual(engine.String("old@x.com")))
	assert.Equal(t, []string{"doc1"}, idx.ProbeEqual(engine.String("new@x.com")))
	assert.Equal(t, 1, idx.Len())
}

func TestUpdateRejectionRestoresOldEntry(t *testing.T) {
	idx := NewHashIndex("users", "email", true, nil)

	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	require.NoError(t, idx.Insert(engine.String("b@x.com"), "doc2"))

	err := idx.Update(engine.String("b@x.com"), engine.String("a@x.com"), "doc2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrIndexConstraint))

	// doc2 is back under its old key.
	assert.Equal(t, []string{"doc2"}, idx.ProbeEqual(engine.String("b@x.com")))
	assert.Equal(t, []string{"doc1"}, idx.ProbeEqual(engine.String("a@x.com")))
	assert.Equal(t, 2, idx.Len())
}

func TestStats(t *testing.T) {
	idx := NewHashIndex("users", "email", true, nil)
	require.NoError(t, idx.Insert(engine.String("a@x.com"), "doc1"))
	require.NoError(t, idx.Insert(engine.String("b@x.com"), "doc2"))

	stats := idx.Stats()
	assert.Equal(t, "users", stats.Collection)
	assert.Equal(t, "email", stats.Column)
	assert.True(t, stats.Unique)
	assert.Equal(t, 2, stats.Keys)
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, engine.IndexKindHash, idx.Kind())
}
