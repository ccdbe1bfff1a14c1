package compiler

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/grenlsp/gren-lsp"
)

// entry is one cached compilation result, keyed by the content hash of the
// document that produced it.
type entry struct {
	hash   uint64
	report Report
}

// Cache memoizes compilation results by document content hash, so an
// unchanged document re-triggering diagnostics (e.g. a sibling file
// saving) doesn't re-invoke the compiler, and concurrent requests for the
// same content collapse into a single subprocess invocation (spec.md §6,
// §9; grounded on the original's HashMap<PathBuf, CompilationResult>
// cache, adapted from a Rust hand-rolled cache to Go's
// golang.org/x/sync/singleflight since Go's ecosystem offers a
// purpose-built collapsing primitive the original didn't have available).
type Cache struct {
	client *Client

	mu      sync.Mutex
	entries map[gren.URI]entry

	group singleflight.Group
}

// NewCache wraps client with a per-URI, content-hash-keyed result cache.
func NewCache(client *Client) *Cache {
	return &Cache{
		client:  client,
		entries: make(map[gren.URI]entry),
	}
}

// Compile returns the cached report for uri if content is unchanged since
// the last successful compile, otherwise runs the compiler (collapsing
// concurrent identical requests for the same URI+content into one
// subprocess) and caches the result.
func (c *Cache) Compile(ctx context.Context, uri gren.URI, content []byte, projectDir, modulePath string) (Report, error) {
	h := hashContent(content)

	c.mu.Lock()
	if cached, ok := c.entries[uri]; ok && cached.hash == h {
		c.mu.Unlock()
		return cached.report, nil
	}
	c.mu.Unlock()

	key := string(uri) + ":" + strconv.FormatUint(h, 16)

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		report, err := c.client.Compile(ctx, uri, projectDir, modulePath)
		if err != nil {
			return Report{}, err
		}

		c.mu.Lock()
		c.entries[uri] = entry{hash: h, report: report}
		c.mu.Unlock()

		return report, nil
	})
	if err != nil {
		return Report{}, err
	}

	return result.(Report), nil
}

// Invalidate drops any cached result for uri, forcing the next Compile
// call to re-run the compiler regardless of content hash (used when a
// document closes or a dependency it relies on changes).
func (c *Cache) Invalidate(uri gren.URI) {
	c.mu.Lock()
	delete(c.entries, uri)
	c.mu.Unlock()
}

func hashContent(content []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(content)
	return h.Sum64()
}
