package lsp_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.lsp.dev/protocol"
)

func TestWillRenameFiles_ModuleRename_RewritesDeclarationAndImporters(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	root := t.TempDir()
	_, _ = server.Initialize(ctx, &protocol.InitializeParams{RootURI: protocol.DocumentURI("file://" + root)})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	oldURI := protocol.DocumentURI("file://" + filepath.Join(root, "src", "Old.gren"))
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     oldURI,
			Version: 1,
			Text: `module Old exposing (helper)

helper : Int -> Int
helper n =
    n + 1
`,
		},
	})

	mainURI := protocol.DocumentURI("file://" + filepath.Join(root, "src", "Main.gren"))
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     mainURI,
			Version: 1,
			Text: `module Main exposing (main)

import Old exposing (helper)

main =
    helper 3
`,
		},
	})

	newURI := protocol.DocumentURI("file://" + filepath.Join(root, "src", "New.gren"))

	edit, err := server.WillRenameFiles(ctx, &protocol.RenameFilesParams{
		Files: []protocol.FileRename{{OldURI: oldURI, NewURI: newURI}},
	})
	if err != nil {
		t.Fatalf("WillRenameFiles() error: %v", err)
	}
	if edit == nil {
		t.Fatal("WillRenameFiles() returned nil, want edits for the renamed module and its importer")
	}

	if edits := edit.Changes[newURI]; len(edits) == 0 {
		t.Errorf("WillRenameFiles() has no edit for the renamed file's own module declaration")
	}
	if edits := edit.Changes[mainURI]; len(edits) == 0 {
		t.Errorf("WillRenameFiles() has no edit for Main.gren, which imports Old")
	}
}

func TestWillRenameFiles_NonGrenFile_ReturnsNil(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	root := t.TempDir()
	_, _ = server.Initialize(ctx, &protocol.InitializeParams{RootURI: protocol.DocumentURI("file://" + root)})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	edit, err := server.WillRenameFiles(ctx, &protocol.RenameFilesParams{
		Files: []protocol.FileRename{{
			OldURI: protocol.DocumentURI("file://" + filepath.Join(root, "README.md")),
			NewURI: protocol.DocumentURI("file://" + filepath.Join(root, "README2.md")),
		}},
	})
	if err != nil {
		t.Fatalf("WillRenameFiles() error: %v", err)
	}
	if edit != nil {
		t.Errorf("WillRenameFiles() = %+v, want nil for a non-.gren rename", edit)
	}
}

func TestDidRenameFiles_ReindexesNewURIAndClearsOld(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	oldURI := protocol.DocumentURI("file:///gone/Old.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     oldURI,
			Version: 1,
			Text: `module Old exposing (oldFn)

oldFn : Int -> Int
oldFn n =
    n + 1
`,
		},
	})

	dir := t.TempDir()
	newPath := filepath.Join(dir, "New.gren")
	if err := os.WriteFile(newPath, []byte(`module New exposing (newFn)

newFn : Int -> Int
newFn n =
    n + 1
`), 0o644); err != nil {
		t.Fatalf("failed to write new file: %v", err)
	}
	newURI := protocol.DocumentURI("file://" + newPath)

	if err := server.DidRenameFiles(ctx, &protocol.RenameFilesParams{
		Files: []protocol.FileRename{{OldURI: oldURI, NewURI: newURI}},
	}); err != nil {
		t.Fatalf("DidRenameFiles() error: %v", err)
	}

	oldSyms, err := server.DocumentSymbol(ctx, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: oldURI},
	})
	if err != nil {
		t.Fatalf("DocumentSymbol(old) error: %v", err)
	}
	if len(oldSyms) != 0 {
		t.Errorf("DocumentSymbol(old) = %+v, want no symbols left under the renamed-away URI", oldSyms)
	}

	newSyms, err := server.DocumentSymbol(ctx, &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: newURI},
	})
	if err != nil {
		t.Fatalf("DocumentSymbol(new) error: %v", err)
	}
	if !hasSymbolNamed(newSyms, "newFn") {
		t.Errorf("DocumentSymbol(new) = %+v, want it to include newFn read from disk", newSyms)
	}
}

func hasSymbolNamed(syms []protocol.DocumentSymbol, name string) bool {
	for _, s := range syms {
		if s.Name == name {
			return true
		}
		if hasSymbolNamed(s.Children, name) {
			return true
		}
	}
	return false
}
