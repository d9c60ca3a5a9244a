package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareValuesAcrossTypes(t *testing.T) {
	// Null < Bool < Number < String < Array < Object
	ordered := []Value{
		Null(),
		Bool(false),
		Number(1),
		String("a"),
		Array(Number(1)),
		ObjectValue(NewObject().Set("k", Number(1))),
	}

	for i := 0; i < len(ordered)-1; i++ {
		assert.Negative(t, CompareValues(ordered[i], ordered[i+1]),
			"expected %s < %s", ordered[i], ordered[i+1])
		assert.Positive(t, CompareValues(ordered[i+1], ordered[i]))
	}
}

func TestCompareValuesWithinTypes(t *testing.T) {
	assert.Negative(t, CompareValues(Bool(false), Bool(true)))
	assert.Negative(t, CompareValues(Number(1), Number(2)))
	assert.Negative(t, CompareValues(String("a"), String("b")))
	assert.Zero(t, CompareValues(Number(3), Number(3)))

	// Shorter array is a prefix of the longer one.
	assert.Negative(t, CompareValues(Array(Number(1)), Array(Number(1), Number(2))))
	assert.Negative(t, CompareValues(Array(Number(1), Number(2)), Array(Number(2))))
}

func TestNaNIsMaximalAndSelfEqual(t *testing.T) {
	nan := Number(math.NaN())

	assert.Zero(t, CompareValues(nan, nan), "NaN must equal itself in the total order")
	assert.True(t, nan.Equal(nan))
	assert.Positive(t, CompareValues(nan, Number(math.Inf(1))), "NaN sorts above every other number")
	assert.Negative(t, CompareValues(Number(math.Inf(1)), nan))

	// Still below every string.
	assert.Negative(t, CompareValues(nan, String("")))
}

func TestNegativeZeroEqualsZero(t *testing.T) {
	negZero := Number(math.Copysign(0, -1))

	assert.Zero(t, CompareValues(negZero, Number(0)))
	assert.True(t, negZero.Equal(Number(0)))

	// Equal values share one canonical key.
	assert.Equal(t, Number(0).CanonicalString(), negZero.CanonicalString())
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject().
		Set("zebra", Number(1)).
		Set("apple", Number(2)).
		Set("mango", Number(3))

	assert.Equal(t, []string{"zebra", "apple", "mango"}, obj.Keys())

	// Re-setting an existing key keeps its position.
	obj.Set("apple", Number(9))
	assert.Equal(t, []string{"zebra", "apple", "mango"}, obj.Keys())
	v, ok := obj.Get("apple")
	require.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, float64(9), n)

	obj.Delete("zebra")
	assert.Equal(t, []string{"apple", "mango"}, obj.Keys())
}

func TestCloneIsIndependent(t *testing.T) {
	inner := NewObject().Set("count", Number(1))
	original := ObjectValue(NewObject().
		Set("nested", ObjectValue(inner)).
		Set("tags", Array(String("a"))))

	clone := original.Clone()

	inner.Set("count", Number(99))
	obj, _ := clone.AsObject()
	nested, _ := obj.Get("nested")
	nestedObj, _ := nested.AsObject()
	count, _ := nestedObj.Get("count")
	n, _ := count.AsNumber()
	assert.Equal(t, float64(1), n, "mutating the source must not leak into the clone")
}

func TestFromNativeRoundTrip(t *testing.T) {
	native := map[string]interface{}{
		"name":   "carol",
		"age":    float64(34),
		"active": true,
		"tags":   []interface{}{"a", "b"},
		"address": map[string]interface{}{
			"city": "Lisbon",
		},
		"nickname": nil,
	}

	v, err := FromNative(native)
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	back := v.ToNative()
	assert.Equal(t, native, back)
}

func TestFromNativeIntegers(t *testing.T) {
	v, err := FromNative(map[string]interface{}{"n": 42})
	require.NoError(t, err)

	obj, _ := v.AsObject()
	field, ok := obj.Get("n")
	require.True(t, ok)
	n, ok := field.AsNumber()
	require.True(t, ok)
	assert.Equal(t, float64(42), n)
}

func TestFromNativeRejectsUnknownTypes(t *testing.T) {
	_, err := FromNative(map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestCanonicalStringDistinguishesTypes(t *testing.T) {
	assert.NotEqual(t, Number(1).CanonicalString(), String("1").CanonicalString())
	assert.NotEqual(t, Bool(true).CanonicalString(), String("true").CanonicalString())
	assert.NotEqual(t, Null().CanonicalString(), String("null").CanonicalString())

	// Same logical value, same key.
	a := ObjectValue(NewObject().Set("x", Number(1)).Set("y", Number(2)))
	b := ObjectValue(NewObject().Set("x", Number(1)).Set("y", Number(2)))
	assert.Equal(t, a.CanonicalString(), b.CanonicalString())
}

func TestEqualMatchesCompare(t *testing.T) {
	pairs := []struct {
		a, b Value
		want bool
	}{
		{Number(1), Number(1), true},
		{Number(1), Number(2), false},
		{String("x"), String("x"), true},
		{Array(Number(1)), Array(Number(1)), true},
		{Array(Number(1)), Array(Number(2)), false},
		{Null(), Null(), true},
		{Number(0), Bool(false), false},
	}
	for _, p := range pairs {
		assert.Equal(t, p.want, p.a.Equal(p.b), "%s vs %s", p.a, p.b)
	}
}

func TestDocumentField(t *testing.T) {
	doc := &Document{
		DocumentID: "d1",
		Value:      ObjectValue(NewObject().Set("name", String("ada"))),
	}

	v, ok := doc.Field("name")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "ada", s)

	_, ok = doc.Field("missing")
	assert.False(t, ok)
}
