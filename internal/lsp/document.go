package lsp

import (
	"sort"
	"sync"

	"github.com/jarredhawkins/omniparse/internal/index"
)

// DocumentStore tracks the buffers the client has open, together with the
// latest parse of each one.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// Document is an open buffer.
type Document struct {
	URI     string
	Version int
	Content string
	Parsed  *index.File // Parse of Content, nil until reindexed
}

// NewDocumentStore creates a new document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*Document),
	}
}

// Open adds a document, replacing any buffer with the same URI.
func (ds *DocumentStore) Open(uri string, version int, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs[uri] = &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
}

// Update replaces the content of an open document. Changes for unknown
// documents or older than the stored version are ignored and reported as
// false.
func (ds *DocumentStore) Update(uri string, version int, content string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	doc, ok := ds.docs[uri]
	if !ok || version < doc.Version {
		return false
	}
	doc.Version = version
	doc.Content = content
	doc.Parsed = nil
	return true
}

// SetParsed records the parse of a document version. It is dropped when the
// buffer has moved on in the meantime.
func (ds *DocumentStore) SetParsed(uri string, version int, f *index.File) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if doc, ok := ds.docs[uri]; ok && doc.Version == version {
		doc.Parsed = f
	}
}

// Parsed returns the latest parse of an open document.
func (ds *DocumentStore) Parsed(uri string) (*index.File, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if doc, ok := ds.docs[uri]; ok && doc.Parsed != nil {
		return doc.Parsed, true
	}
	return nil, false
}

// Close removes a document and reports whether it was open.
func (ds *DocumentStore) Close(uri string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	_, ok := ds.docs[uri]
	delete(ds.docs, uri)
	return ok
}

// Get returns a document's content
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if doc, ok := ds.docs[uri]; ok {
		return doc.Content, true
	}
	return "", false
}

// IsOpen checks if a document is open
func (ds *DocumentStore) IsOpen(uri string) bool {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	_, ok := ds.docs[uri]
	return ok
}

// URIs lists the open documents, sorted.
func (ds *DocumentStore) URIs() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	uris := make([]string, 0, len(ds.docs))
	for uri := range ds.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
