// Package docstore implements the Document Store: the single-writer,
// multi-reader map of open documents shared by every language-feature
// engine, plus an LRU of recently closed documents (spec.md §4.3).
package docstore

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
)

// Edit is a single range-based text replacement, expressed in the
// protocol's position units (lines, UTF-16 code units).
type Edit struct {
	Range   gren.Span
	NewText string
}

// Document is one open file's version, text, and most recent parse.
type Document struct {
	URI     gren.URI
	Version int32
	Text    string

	// Tree is the most recent successful parse. It may contain ERROR
	// nodes (spec.md §4.1, ParseIncomplete); engines tolerate that and
	// are never handed a nil tree for a document with nonempty text.
	Tree *tree_sitter.Tree
}

type closedEntry struct {
	Version int32
	Text    string
}

// Store holds the open-document map and the closed-document LRU. All
// mutation goes through a single writer lock; reads take the reader lock,
// matching the single-writer/multi-reader contract of spec.md §5.
type Store struct {
	mu   sync.RWMutex
	open map[gren.URI]*Document

	closed *lru.Cache[gren.URI, closedEntry]

	pool  *cst.Pool
	cache *cst.Cache
}

// New creates a Document Store. closedCapacity is the closed-document LRU
// size (spec.md §4.3 default 100).
func New(pool *cst.Pool, cache *cst.Cache, closedCapacity int) *Store {
	if closedCapacity <= 0 {
		closedCapacity = gren.DefaultClosedDocumentCapacity
	}

	closed, _ := lru.New[gren.URI, closedEntry](closedCapacity)

	return &Store{
		open:   make(map[gren.URI]*Document),
		closed: closed,
		pool:   pool,
		cache:  cache,
	}
}

// Open registers a newly opened document and parses its initial text.
func (s *Store) Open(ctx context.Context, uri gren.URI, version int32, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.open[uri]; exists {
		return &gren.AlreadyOpenError{URI: uri}
	}

	tree, err := s.parse(ctx, uri, text)
	if err != nil {
		return err
	}

	s.open[uri] = &Document{URI: uri, Version: version, Text: text, Tree: tree}
	s.closed.Remove(uri)

	return nil
}

// Change applies edits in order, requiring newVersion == current+1.
func (s *Store) Change(ctx context.Context, uri gren.URI, newVersion int32, edits []Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.open[uri]
	if !ok {
		return &gren.NotOpenError{URI: uri}
	}

	expected := doc.Version + 1
	if newVersion != expected {
		return &gren.VersionInvalidError{
			URI:      uri,
			Current:  doc.Version,
			Expected: expected,
			Received: newVersion,
		}
	}

	text := doc.Text
	for _, e := range edits {
		text = ApplyEdit(text, e.Range, e.NewText)
	}

	tree, err := s.parse(ctx, uri, text)
	if err != nil {
		return err
	}

	if doc.Tree != nil {
		doc.Tree.Close()
	}

	doc.Version = newVersion
	doc.Text = text
	doc.Tree = tree

	return nil
}

// Save is a no-op on text; callers trigger reindex from it themselves.
func (s *Store) Save(uri gren.URI) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.open[uri]; !ok {
		return &gren.NotOpenError{URI: uri}
	}

	return nil
}

// Close moves the entry to the closed-document LRU.
func (s *Store) Close(uri gren.URI) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.open[uri]
	if !ok {
		return &gren.NotOpenError{URI: uri}
	}

	if doc.Tree != nil {
		doc.Tree.Close()
	}

	delete(s.open, uri)
	s.closed.Add(uri, closedEntry{Version: doc.Version, Text: doc.Text})
	s.cache.Invalidate(uri)

	return nil
}

// Read returns (version, text) from the open set, falling back to the
// closed-document cache.
func (s *Store) Read(uri gren.URI) (int32, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if doc, ok := s.open[uri]; ok {
		return doc.Version, doc.Text, true
	}

	if entry, ok := s.closed.Get(uri); ok {
		return entry.Version, entry.Text, true
	}

	return 0, "", false
}

// Document returns the live *Document for an open uri, or nil. Callers
// hold the store's read lock only for the duration of the lookup; the
// returned Document must not be mutated.
func (s *Store) Document(uri gren.URI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.open[uri]
	if !ok {
		return nil
	}

	cp := *doc

	return &cp
}

// OpenURIs returns every currently open document URI.
func (s *Store) OpenURIs() []gren.URI {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uris := make([]gren.URI, 0, len(s.open))
	for uri := range s.open {
		uris = append(uris, uri)
	}

	return uris
}

func (s *Store) parse(ctx context.Context, uri gren.URI, text string) (*tree_sitter.Tree, error) {
	content := []byte(text)

	if tree, ok := s.cache.Get(uri, content); ok {
		return tree, nil
	}

	tree, err := s.pool.Parse(ctx, content)
	if err != nil {
		return nil, err
	}

	s.cache.Put(uri, content, tree.Clone())

	return tree, nil
}
