package cst

import (
	"hash/fnv"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp"
)

const defaultTreeCacheEntries = 512

// Cache stores master parse trees keyed by (uri, content hash) and hands
// clones to callers, mirroring the Document Store's one-parse-per-content
// rule: re-opening the same bytes for a URI, or reparsing after an edit
// that happens to reproduce earlier bytes, reuses the cached tree instead
// of invoking the parser again.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *tree_sitter.Tree]
}

// NewCache creates a tree cache with the given entry capacity, or the
// package default when capacity is non-positive.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultTreeCacheEntries
	}

	c := &Cache{}
	c.entries, _ = lru.NewWithEvict[string, *tree_sitter.Tree](capacity, c.onEvicted)

	return c
}

func (c *Cache) onEvicted(_ string, tree *tree_sitter.Tree) {
	if tree != nil {
		tree.Close()
	}
}

func cacheKey(uri gren.URI, content []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(content)

	return string(uri) + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns a clone of the cached tree for (uri, content), if present.
func (c *Cache) Get(uri gren.URI, content []byte) (*tree_sitter.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tree, ok := c.entries.Get(cacheKey(uri, content))
	if !ok || tree == nil {
		return nil, false
	}

	return tree.Clone(), true
}

// Put stores tree as the master copy for (uri, content). Put takes
// ownership of tree; callers that keep using it should pass a clone.
func (c *Cache) Put(uri gren.URI, content []byte, tree *tree_sitter.Tree) {
	if tree == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Add(cacheKey(uri, content), tree)
}

// Invalidate drops every cached tree for uri regardless of content hash.
// Called when a document closes, since its cache keys would otherwise
// linger until evicted by capacity.
func (c *Cache) Invalidate(uri gren.URI) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := string(uri) + ":"
	for _, key := range c.entries.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.entries.Remove(key)
		}
	}
}

// Close releases every cached tree.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
}
