package directors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meridiandb/src/engine"
	"meridiandb/src/schema"
	"meridiandb/src/settings"
)

func newTestService(t *testing.T) *CollectionService {
	t.Helper()
	validators := schema.NewValidatorRegistry(nil)
	registry := schema.NewSchemaRegistry(nil)
	validationEngine := schema.NewValidationEngine(validators, nil)
	storeValidator := schema.NewStoreValidator(registry, validationEngine)
	storageEngine := engine.NewStorageEngine(storeValidator, engine.NewDocumentFactory(), nil)
	return NewCollectionService(storageEngine, registry, validators, nil, &settings.Arguments{})
}

func userDoc(name string, age float64) engine.Value {
	return engine.ObjectValue(engine.NewObject().
		Set("name", engine.String(name)).
		Set("age", engine.Number(age)))
}

func TestServiceEnforcesRegisteredSchema(t *testing.T) {
	svc := newTestService(t)

	max := 130.0
	s := schema.NewSchema("users").
		Field(schema.StringField("name").Require()).
		Field(schema.NumberField("age").WithNumeric(&schema.NumericConstraint{Maximum: &max}))
	require.NoError(t, svc.RegisterSchema("users", s, nil, false))

	_, err := svc.CreateDocument("users", userDoc("carol", 34))
	assert.NoError(t, err)

	_, err = svc.CreateDocument("users", userDoc("methuselah", 969))
	require.Error(t, err)
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "MaxExceeded", verr.Violations[0].Kind.String())

	// Disabling validation opens the gate; re-enabling closes it again.
	require.NoError(t, svc.DisableValidation("users"))
	_, err = svc.CreateDocument("users", userDoc("methuselah", 969))
	assert.NoError(t, err)

	require.NoError(t, svc.EnableValidation("users"))
	_, err = svc.CreateDocument("users", userDoc("methuselah", 969))
	assert.Error(t, err)
}

func TestServiceSchemaUpdateAppliesToLaterWrites(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.RegisterSchema("users", schema.NewSchema("users").
		Field(schema.StringField("name").Require()), nil, false))

	_, err := svc.CreateDocument("users", userDoc("carol", 34))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateSchema("users", schema.NewSchema("users").
		Field(schema.StringField("name").Require()).
		Field(schema.StringField("email").Require())))

	_, err = svc.CreateDocument("users", userDoc("dan", 40))
	assert.Error(t, err, "new schema requires email")

	stats := svc.RegistryStats()
	assert.Equal(t, 1, stats.TotalCollections)
	assert.Equal(t, 1, stats.EnabledCollections)
}

func TestServiceIndexLifecycle(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.CreateDocument("users", userDoc("carol", 34))
	require.NoError(t, err)
	_, err = svc.CreateDocument("users", userDoc("dan", 40))
	require.NoError(t, err)

	require.NoError(t, svc.CreateHashIndex("users", "name", false))
	require.NoError(t, svc.CreateOrderedIndex("users", "age", false))

	docs, err := svc.FindEqual("users", "name", engine.String("carol"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.DocumentID, docs[0].DocumentID)

	lower, upper := engine.Number(35), engine.Number(45)
	docs, err = svc.FindRange("users", "age", &lower, &upper, true, true)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.True(t, svc.DropIndex("users", "age"))
	_, err = svc.FindRange("users", "age", &lower, &upper, true, true)
	assert.ErrorIs(t, err, engine.ErrNoSuitableIndex)
}

func TestServiceDocumentLifecycle(t *testing.T) {
	svc := newTestService(t)

	doc, err := svc.CreateDocument("users", userDoc("carol", 34))
	require.NoError(t, err)

	updated, err := svc.UpdateDocument("users", doc.DocumentID, func(v engine.Value) (engine.Value, error) {
		obj, _ := v.AsObject()
		obj.Set("age", engine.Number(35))
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), updated.Metadata.Version)

	got, err := svc.GetDocument("users", doc.DocumentID)
	require.NoError(t, err)
	age, _ := got.Field("age")
	n, _ := age.AsNumber()
	assert.Equal(t, float64(35), n)

	require.NoError(t, svc.DeleteDocument("users", doc.DocumentID))
	_, err = svc.GetDocument("users", doc.DocumentID)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	assert.Equal(t, 0, svc.CountDocuments("users"))
	assert.Equal(t, []string{"users"}, svc.Collections())
}

func TestServiceBulkLoad(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterSchema("users", schema.NewSchema("users").
		Field(schema.StringField("name").Require()), nil, false))

	results, err := svc.LoadDocuments("users", []engine.Value{
		userDoc("carol", 34),
		engine.ObjectValue(engine.NewObject().Set("age", engine.Number(1))),
		userDoc("dan", 40),
	})
	require.Error(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 2, svc.CountDocuments("users"))
}
