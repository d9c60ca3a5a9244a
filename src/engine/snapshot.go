package engine

import (
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Snapshotter dumps a collection's documents to a BSON file and loads
// them back, re-running validation and index maintenance on the way in.
type Snapshotter struct {
	engine *StorageEngine
	logger *zap.SugaredLogger
}

func NewSnapshotter(engine *StorageEngine, logger *zap.SugaredLogger) *Snapshotter {
	return &Snapshotter{engine: engine, logger: logger}
}

type snapshotDocument struct {
	DocumentID string      `bson:"document_id"`
	Value      interface{} `bson:"value"`
	CreatedAt  time.Time   `bson:"created_at"`
	UpdatedAt  time.Time   `bson:"updated_at"`
	Version    uint64      `bson:"version"`
}

type snapshotFile struct {
	Collection string             `bson:"collection"`
	ExportedAt time.Time          `bson:"exported_at"`
	Documents  []snapshotDocument `bson:"documents"`
}

// ExportCollection writes every document of the collection to path as
// one BSON document.
func (s *Snapshotter) ExportCollection(collection, path string) error {
	docs, err := s.engine.ListAll(collection)
	if err != nil {
		return fmt.Errorf("export collection %q: %w", collection, err)
	}

	dump := snapshotFile{
		Collection: collection,
		ExportedAt: time.Now(),
		Documents:  make([]snapshotDocument, 0, len(docs)),
	}
	for _, doc := range docs {
		dump.Documents = append(dump.Documents, snapshotDocument{
			DocumentID: doc.DocumentID,
			Value:      doc.Value.ToNative(),
			CreatedAt:  doc.Metadata.CreatedAt,
			UpdatedAt:  doc.Metadata.UpdatedAt,
			Version:    doc.Metadata.Version,
		})
	}

	payload, err := bson.Marshal(dump)
	if err != nil {
		return fmt.Errorf("encode snapshot for collection %q: %w", collection, err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("write snapshot file %s: %w", path, err)
	}

	if s.logger != nil {
		s.logger.Infow("Exported collection snapshot",
			"collection", collection,
			"documents", len(dump.Documents),
			"path", path)
	}
	return nil
}

// ImportCollection loads a snapshot file back into the engine. Each
// document goes through the normal create path, so schemas and indexes
// apply; documents get fresh ids and metadata. Individual failures do
// not stop the import and come back aggregated.
func (s *Snapshotter) ImportCollection(path string) (string, []LoadResult, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read snapshot file %s: %w", path, err)
	}

	var dump snapshotFile
	if err := bson.Unmarshal(payload, &dump); err != nil {
		return "", nil, fmt.Errorf("decode snapshot file %s: %w", path, err)
	}

	values := make([]Value, 0, len(dump.Documents))
	var convErrs error
	for i, doc := range dump.Documents {
		v, err := FromNative(normalizeBSON(doc.Value))
		if err != nil {
			convErrs = multierr.Append(convErrs, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		values = append(values, v)
	}

	results, loadErr := s.engine.LoadMany(dump.Collection, values)

	if s.logger != nil {
		s.logger.Infow("Imported collection snapshot",
			"collection", dump.Collection,
			"documents", len(results),
			"path", path)
	}
	return dump.Collection, results, multierr.Append(convErrs, loadErr)
}

// normalizeBSON rewrites the driver's decoded types (primitive.D,
// primitive.M, primitive.A, int32/int64, primitive.DateTime) into the
// plain Go shapes FromNative accepts.
func normalizeBSON(data interface{}) interface{} {
	switch t := data.(type) {
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, elem := range t {
			out[elem.Key] = normalizeBSON(elem.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[k] = normalizeBSON(v)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[k] = normalizeBSON(v)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = normalizeBSON(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = normalizeBSON(v)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Null:
		return nil
	default:
		return data
	}
}
