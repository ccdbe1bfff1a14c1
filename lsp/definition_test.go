package lsp_test

import (
	"context"
	"testing"

	"go.lsp.dev/protocol"
)

func TestDefinition_OnReference_ResolvesToDeclaration(t *testing.T) {
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

double : Int -> Int
double n =
    n * 2

main =
    double 3
`,
		},
	})

	locations, err := server.Definition(ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 7, Character: 5}, // "double 3" call site
		},
	})
	if err != nil {
		t.Fatalf("Definition() error: %v", err)
	}
	if len(locations) != 1 {
		t.Fatalf("Definition() = %+v, want exactly one location", locations)
	}
	if locations[0].Range.Start.Line != 3 {
		t.Errorf("Definition() resolved to line %d, want line 3 (the declaration)", locations[0].Range.Start.Line)
	}
}

func TestDefinition_OnLocalLetBinding_FallsBackToScopeWalk(t *testing.T) {
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
    let
        x = 1
    in
    x
`,
		},
	})

	locations, err := server.Definition(ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: 6, Character: 4}, // "x" usage
		},
	})
	if err != nil {
		t.Fatalf("Definition() error: %v", err)
	}
	if len(locations) != 1 {
		t.Fatalf("Definition() = %+v, want exactly one location for the local binding", locations)
	}
}
