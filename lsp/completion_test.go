package lsp_test

import (
	"context"
	"testing"

	"go.lsp.dev/protocol"
)

func TestCompletion_ModuleMember_ListsMembersOfImportedModule(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     "file:///Util.gren",
			Version: 1,
			Text: `module Util exposing (triple)

triple : Int -> Int
triple n =
    n * 3
`,
		},
	})

	uri := protocol.DocumentURI("file:///Main.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text: `module Main exposing (main)

import Util

main =
    Util.
`,
		},
	})

	result, err := server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 5, Character: 9}, // right after "Util."
		},
	})
	if err != nil {
		t.Fatalf("Completion() error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a completion list")
	}

	var found bool
	for _, item := range result.Items {
		if item.Label == "triple" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q among module-member completions, got %+v", "triple", result.Items)
	}
}

func TestCompletion_TypePosition_IncludesBuiltinTypes(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	uri := protocol.DocumentURI("file:///Main.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text: `module Main exposing (double)

double : In
`,
		},
	})

	result, err := server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 2, Character: 11}, // end of "In"
		},
	})
	if err != nil {
		t.Fatalf("Completion() error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a completion list")
	}

	var found bool
	for _, item := range result.Items {
		if item.Label == "Int" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected builtin type %q among completions, got %+v", "Int", result.Items)
	}
}

func TestCompletion_BeforeInitialized_ReturnsNotReadyError(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, err := server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///test.gren"},
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err == nil {
		t.Fatal("expected a not-ready error before initialize/initialized")
	}
}
