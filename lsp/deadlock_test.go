package lsp_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.lsp.dev/protocol"
)

// TestServer_Deadlock_DidChangeCompletion tests for deadlock when a
// completion request arrives while didChange is still processing.
//
// The risk: DidChange must not hold the server's state lock while calling
// PublishDiagnostics (an RPC call back to the client). If Completion's
// handler tries to acquire a read lock on the same state while that RPC
// is still in flight, the two goroutines deadlock.
func TestServer_Deadlock_DidChangeCompletion(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{})
	_ = server.Initialized(ctx, &protocol.InitializedParams{})

	content := `module Main exposing (main)

import Dict exposing (Dict)

main : Dict.
`
	uri := protocol.DocumentURI("file:///test.gren")
	_ = server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:     uri,
			Version: 1,
			Text:    content,
		},
	})

	changedContent := `module Main exposing (main)

import Dict exposing (Dict)

main : Dict.D
`

	var wg sync.WaitGroup
	errChan := make(chan error, 2)
	doneChan := make(chan struct{}, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                2,
			},
			ContentChanges: []protocol.TextDocumentContentChangeEvent{
				{Text: changedContent},
			},
		})
		if err != nil {
			errChan <- err
		}
		doneChan <- struct{}{}
	}()

	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond) // let didChange start first
		_, err := server.Completion(ctx, &protocol.CompletionParams{
			TextDocumentPositionParams: protocol.TextDocumentPositionParams{
				TextDocument: protocol.TextDocumentIdentifier{URI: uri},
				Position:     protocol.Position{Line: 4, Character: 13}, // after "Dict."
			},
		})
		if err != nil {
			errChan <- err
		}
		doneChan <- struct{}{}
	}()

	timeout := time.After(5 * time.Second)
	completed := 0
	for completed < 2 {
		select {
		case <-doneChan:
			completed++
		case err := <-errChan:
			t.Errorf("Unexpected error: %v", err)
		case <-timeout:
			t.Fatal("DEADLOCK DETECTED: operations did not complete within 5 seconds")
		}
	}

	wg.Wait()
}

// TestServer_Deadlock_RapidChanges tests for deadlock under rapid
// concurrent changes and completions against the same document.
func TestServer_Deadlock_RapidChanges(t *testing.T) {
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
			Text:    "module Main exposing (main)\n\nmain = 0\n",
		},
	})

	var wg sync.WaitGroup
	doneChan := make(chan struct{}, 20)

	for i := range 10 {
		version := int32(i + 2)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
				TextDocument: protocol.VersionedTextDocumentIdentifier{
					TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
					Version:                version,
				},
				ContentChanges: []protocol.TextDocumentContentChangeEvent{
					{Text: "module Main exposing (main)\n\nmain = " + string(rune('0'+version%10)) + "\n"},
				},
			})
			doneChan <- struct{}{}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = server.Completion(ctx, &protocol.CompletionParams{
				TextDocumentPositionParams: protocol.TextDocumentPositionParams{
					TextDocument: protocol.TextDocumentIdentifier{URI: uri},
					Position:     protocol.Position{Line: 2, Character: 7},
				},
			})
			doneChan <- struct{}{}
		}()
	}

	timeout := time.After(10 * time.Second)
	completed := 0
	for completed < 20 {
		select {
		case <-doneChan:
			completed++
		case <-timeout:
			t.Fatalf("DEADLOCK DETECTED: only %d/20 operations completed within 10 seconds", completed)
		}
	}

	wg.Wait()
}
