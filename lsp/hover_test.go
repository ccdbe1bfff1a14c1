package lsp_test

import (
	"context"
	"strings"
	"testing"

	"go.lsp.dev/protocol"
)

func TestHover_OnFunctionDefinition_ShowsSignatureAndDoc(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	uri := protocol.DocumentURI("file:///test.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text: `module Main exposing (double)

{-| Doubles a number. -}
double : Int -> Int
double n =
    n * 2
`,
		},
	})

	// Hover on the "double" in its own definition, line 3 ("double : Int -> Int")
	result, err := server.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 3, Character: 2},
		},
	})
	if err != nil {
		t.Fatalf("Hover() error: %v", err)
	}
	if result == nil {
		t.Fatal("expected hover result")
	}

	content := result.Contents.Value
	t.Logf("hover content:\n%s", content)

	if !strings.Contains(content, "Int -> Int") {
		t.Errorf("expected signature in hover, got: %s", content)
	}
	if !strings.Contains(content, "Doubles a number") {
		t.Errorf("expected doc comment in hover, got: %s", content)
	}
}

func TestHover_OnUnresolvedIdentifier_ReturnsNil(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	uri := protocol.DocumentURI("file:///test.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text: `module Main exposing (main)

main =
    unknownThing
`,
		},
	})

	result, err := server.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 3, Character: 6},
		},
	})
	if err != nil {
		t.Fatalf("Hover() error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil hover for an unresolved identifier, got: %v", result.Contents)
	}
}

func TestHover_OnOperator_ReturnsNil(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	uri := protocol.DocumentURI("file:///test.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text: `module Main exposing (main)

main =
    1 + 2
`,
		},
	})

	result, err := server.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 3, Character: 6}, // on "+"
		},
	})
	if err != nil {
		t.Fatalf("Hover() error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil hover on a bare operator, got: %v", result.Contents)
	}
}

func TestHover_CrossModuleSymbol_ShowsSourceModule(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	utilURI := protocol.DocumentURI("file:///src/Util.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     utilURI,
			Version: 1,
			Text: `module Util exposing (triple)

triple : Int -> Int
triple n =
    n * 3
`,
		},
	})

	mainURI := protocol.DocumentURI("file:///src/Main.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     mainURI,
			Version: 1,
			Text: `module Main exposing (main)

import Util exposing (triple)

main =
    triple 2
`,
		},
	})

	result, err := server.Hover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: mainURI},
			Position:     protocol.Position{Line: 5, Character: 5}, // on "triple" call
		},
	})
	if err != nil {
		t.Fatalf("Hover() error: %v", err)
	}
	if result == nil {
		t.Fatal("expected hover result for a cross-module reference")
	}

	content := result.Contents.Value
	t.Logf("hover content:\n%s", content)

	if !strings.Contains(content, "Util") {
		t.Errorf("expected source module mentioned in hover, got: %s", content)
	}
}
