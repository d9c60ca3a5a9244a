package engine

// DocumentTable is the authoritative set of documents for one collection,
// preserving insertion order for full scans. The table carries no lock of
// its own: the storage engine serializes mutations per collection.
type DocumentTable struct {
	docs  map[string]*Document
	order []string
}

func NewDocumentTable() *DocumentTable {
	return &DocumentTable{docs: make(map[string]*Document)}
}

func (t *DocumentTable) Insert(doc *Document) {
	if _, exists := t.docs[doc.DocumentID]; !exists {
		t.order = append(t.order, doc.DocumentID)
	}
	t.docs[doc.DocumentID] = doc
}

func (t *DocumentTable) Get(id string) (*Document, bool) {
	doc, ok := t.docs[id]
	return doc, ok
}

// Replace swaps the stored document for an existing id, keeping its
// position in insertion order.
func (t *DocumentTable) Replace(doc *Document) {
	t.docs[doc.DocumentID] = doc
}

func (t *DocumentTable) Remove(id string) bool {
	if _, exists := t.docs[id]; !exists {
		return false
	}
	delete(t.docs, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns the documents in insertion order.
func (t *DocumentTable) All() []*Document {
	out := make([]*Document, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.docs[id])
	}
	return out
}

func (t *DocumentTable) Len() int {
	return len(t.docs)
}
