package cst

import (
	"context"
	"testing"

	"github.com/grenlsp/gren-lsp"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	pool := NewPoolWithSize(1)
	defer pool.Close()
	cache := NewCache(0)
	defer cache.Close()

	uri := gren.URI("file:///a.gren")
	content := []byte("main = 0\n")

	tree, err := pool.Parse(context.Background(), content)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cache.Put(uri, content, tree)

	got, ok := cache.Get(uri, content)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	defer got.Close()

	if got.RootNode() == nil {
		t.Error("expected a usable cloned tree")
	}
}

func TestCache_MissOnDifferentContent(t *testing.T) {
	pool := NewPoolWithSize(1)
	defer pool.Close()
	cache := NewCache(0)
	defer cache.Close()

	uri := gren.URI("file:///a.gren")
	if _, ok := cache.Get(uri, []byte("main = 0\n")); ok {
		t.Error("expected a miss on an empty cache")
	}

	cached := []byte("main = 0\n")
	tree, err := pool.Parse(context.Background(), cached)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	cache.Put(uri, cached, tree)

	if _, ok := cache.Get(uri, []byte("main = 1\n")); ok {
		t.Error("expected a miss for content that differs from the cached entry")
	}
}

func TestCache_InvalidateDropsAllEntriesForURI(t *testing.T) {
	pool := NewPoolWithSize(1)
	defer pool.Close()
	cache := NewCache(0)
	defer cache.Close()

	uri := gren.URI("file:///a.gren")
	v1 := []byte("main = 0\n")
	v2 := []byte("main = 1\n")

	t1, _ := pool.Parse(context.Background(), v1)
	cache.Put(uri, v1, t1)
	t2, _ := pool.Parse(context.Background(), v2)
	cache.Put(uri, v2, t2)

	cache.Invalidate(uri)

	if _, ok := cache.Get(uri, v1); ok {
		t.Error("expected v1 entry to be invalidated")
	}
	if _, ok := cache.Get(uri, v2); ok {
		t.Error("expected v2 entry to be invalidated")
	}
}

func TestCache_InvalidateLeavesOtherURIsAlone(t *testing.T) {
	pool := NewPoolWithSize(1)
	defer pool.Close()
	cache := NewCache(0)
	defer cache.Close()

	uriA := gren.URI("file:///a.gren")
	uriB := gren.URI("file:///b.gren")
	content := []byte("main = 0\n")

	ta, _ := pool.Parse(context.Background(), content)
	cache.Put(uriA, content, ta)
	tb, _ := pool.Parse(context.Background(), content)
	cache.Put(uriB, content, tb)

	cache.Invalidate(uriA)

	if _, ok := cache.Get(uriA, content); ok {
		t.Error("expected uriA entry to be invalidated")
	}
	if _, ok := cache.Get(uriB, content); !ok {
		t.Error("expected uriB entry to survive uriA's invalidation")
	}
}
