package btreeindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridiandb/src/engine"
)

func collect(seq func(yield func(string) bool)) []string {
	var out []string
	seq(func(id string) bool {
		out = append(out, id)
		return true
	})
	return out
}

func seededIndex(t *testing.T) *BTreeIndex {
	t.Helper()
	idx := NewBTreeIndex("users", "age", false, nil)
	for _, row := range []struct {
		age float64
		id  string
	}{
		{30, "doc30"},
		{10, "doc10"},
		{20, "doc20a"},
		{20, "doc20b"},
		{40, "doc40"},
	} {
		require.NoError(t, idx.Insert(engine.Number(row.age), row.id))
	}
	return idx
}

func TestRangeInclusiveBounds(t *testing.T) {
	idx := seededIndex(t)

	lower := engine.Number(10)
	upper := engine.Number(30)
	ids := collect(idx.Range(&lower, &upper, true, true))

	assert.Equal(t, []string{"doc10", "doc20a", "doc20b", "doc30"}, ids)
}

func TestRangeExclusiveBounds(t *testing.T) {
	idx := seededIndex(t)

	lower := engine.Number(10)
	upper := engine.Number(30)
	ids := collect(idx.Range(&lower, &upper, false, false))

	assert.Equal(t, []string{"doc20a", "doc20b"}, ids)
}

func TestRangeOpenBounds(t *testing.T) {
	idx := seededIndex(t)

	all := collect(idx.Range(nil, nil, true, true))
	assert.Equal(t, []string{"doc10", "doc20a", "doc20b", "doc30", "doc40"}, all)

	lower := engine.Number(25)
	aboveOnly := collect(idx.Range(&lower, nil, true, true))
	assert.Equal(t, []string{"doc30", "doc40"}, aboveOnly)

	upper := engine.Number(15)
	belowOnly := collect(idx.Range(nil, &upper, true, true))
	assert.Equal(t, []string{"doc10"}, belowOnly)
}

func TestRangeEmptyWindow(t *testing.T) {
	idx := seededIndex(t)

	lower := engine.Number(21)
	upper := engine.Number(29)
	assert.Empty(t, collect(idx.Range(&lower, &upper, true, true)))

	// Inverted bounds yield nothing rather than wrapping.
	lower = engine.Number(40)
	upper = engine.Number(10)
	assert.Empty(t, collect(idx.Range(&lower, &upper, true, true)))
}

func TestRangeEarlyStop(t *testing.T) {
	idx := seededIndex(t)

	var got []string
	idx.Range(nil, nil, true, true)(func(id string) bool {
		got = append(got, id)
		return len(got) < 2
	})
	assert.Len(t, got, 2)
}

func TestProbeEqualAndLen(t *testing.T) {
	idx := seededIndex(t)

	assert.Equal(t, []string{"doc20a", "doc20b"}, idx.ProbeEqual(engine.Number(20)))
	assert.Empty(t, idx.ProbeEqual(engine.Number(99)))
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 4, idx.KeyCount())
	assert.Equal(t, engine.IndexKindOrdered, idx.Kind())
}

func TestRemoveCleansKeySlice(t *testing.T) {
	idx := seededIndex(t)

	idx.Remove(engine.Number(20), "doc20a")
	assert.Equal(t, []string{"doc20b"}, idx.ProbeEqual(engine.Number(20)))
	assert.Equal(t, 4, idx.KeyCount(), "key stays while one id remains")

	idx.Remove(engine.Number(20), "doc20b")
	assert.Empty(t, idx.ProbeEqual(engine.Number(20)))
	assert.Equal(t, 3, idx.KeyCount(), "empty key is dropped")

	lower := engine.Number(10)
	upper := engine.Number(40)
	assert.Equal(t, []string{"doc10", "doc30", "doc40"},
		collect(idx.Range(&lower, &upper, true, true)))
}

func TestUniqueConstraintAndUpdateRestore(t *testing.T) {
	idx := NewBTreeIndex("users", "age", true, nil)
	require.NoError(t, idx.Insert(engine.Number(10), "doc1"))
	require.NoError(t, idx.Insert(engine.Number(20), "doc2"))

	err := idx.Insert(engine.Number(10), "doc3")
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrIndexConstraint)

	err = idx.Update(engine.Number(20), engine.Number(10), "doc2")
	require.Error(t, err)
	assert.Equal(t, []string{"doc2"}, idx.ProbeEqual(engine.Number(20)))
	assert.Equal(t, []string{"doc1"}, idx.ProbeEqual(engine.Number(10)))
}

func TestMixedTypeKeysOrderByTypeRank(t *testing.T) {
	idx := NewBTreeIndex("misc", "value", false, nil)
	require.NoError(t, idx.Insert(engine.String("alpha"), "docStr"))
	require.NoError(t, idx.Insert(engine.Number(5), "docNum"))
	require.NoError(t, idx.Insert(engine.Null(), "docNull"))
	require.NoError(t, idx.Insert(engine.Bool(true), "docBool"))

	all := collect(idx.Range(nil, nil, true, true))
	assert.Equal(t, []string{"docNull", "docBool", "docNum", "docStr"}, all)
}

func TestNaNSortsAboveNumbers(t *testing.T) {
	idx := NewBTreeIndex("metrics", "score", false, nil)
	require.NoError(t, idx.Insert(engine.Number(math.NaN()), "docNaN"))
	require.NoError(t, idx.Insert(engine.Number(math.Inf(1)), "docInf"))
	require.NoError(t, idx.Insert(engine.Number(1), "docOne"))

	all := collect(idx.Range(nil, nil, true, true))
	assert.Equal(t, []string{"docOne", "docInf", "docNaN"}, all)

	nan := engine.Number(math.NaN())
	assert.Equal(t, []string{"docNaN"}, idx.ProbeEqual(nan))
	assert.Equal(t, []string{"docNaN"}, collect(idx.Range(&nan, &nan, true, true)))
}

func TestNegativeZeroSharesKeyWithZero(t *testing.T) {
	idx := NewBTreeIndex("measurements", "offset", false, nil)

	negZero := math.Copysign(0, -1)
	require.NoError(t, idx.Insert(engine.Number(0), "docA"))
	require.NoError(t, idx.Insert(engine.Number(negZero), "docB"))

	// Both signs of zero compare equal, so they share one key.
	assert.Equal(t, 1, idx.KeyCount())
	assert.Equal(t, []string{"docA", "docB"}, idx.ProbeEqual(engine.Number(0)))
	assert.Equal(t, []string{"docA", "docB"}, idx.ProbeEqual(engine.Number(negZero)))

	// Removing one entry must leave the other reachable.
	idx.Remove(engine.Number(0), "docA")
	assert.Equal(t, []string{"docB"}, idx.ProbeEqual(engine.Number(0)))
	assert.Equal(t, []string{"docB"}, collect(idx.Range(nil, nil, true, true)))
	assert.Equal(t, 1, idx.KeyCount())
}
