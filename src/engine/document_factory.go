package engine

import (
	"time"

	"meridiandb/src/helpers"
)

// DocumentFactory mints documents with fresh identity and timestamps.
type DocumentFactory interface {
	NewDocument(value Value) *Document
}

type DocumentFactoryImpl struct{}

func NewDocumentFactory() DocumentFactory {
	return &DocumentFactoryImpl{}
}

func (f *DocumentFactoryImpl) NewDocument(value Value) *Document {
	now := time.Now()

	return &Document{
		DocumentID: helpers.GenerateUUID(),
		Value:      value,
		Metadata: Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			Version:   1,
		},
	}
}
