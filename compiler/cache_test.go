package compiler_test

import (
	"context"
	"testing"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/compiler"
)

func TestCache_MissingBinaryPropagatesError(t *testing.T) {
	t.Parallel()

	client := compiler.New(gren.ServerConfig{})
	cache := compiler.NewCache(client)

	_, err := cache.Compile(context.Background(), "file:///a/Main.gren", []byte("module Main exposing (..)"), "/a", "Main")
	if _, ok := err.(*gren.CompilerMissingError); !ok {
		t.Fatalf("expected *gren.CompilerMissingError, got %v (%T)", err, err)
	}
}

func TestCache_Invalidate(t *testing.T) {
	t.Parallel()

	client := compiler.New(gren.ServerConfig{})
	cache := compiler.NewCache(client)

	// Invalidating a URI never compiled is a no-op, not a panic.
	cache.Invalidate("file:///never/compiled.gren")
}
