// Package lsp implements the Language Server Protocol front end over the
// core's Document Store, Symbol Index, Resolver, and compiler collaborator
// (spec.md §4.8).
package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/compiler"
	"github.com/grenlsp/gren-lsp/cst"
	"github.com/grenlsp/gren-lsp/docstore"
	"github.com/grenlsp/gren-lsp/query"
	"github.com/grenlsp/gren-lsp/resolve"
	"github.com/grenlsp/gren-lsp/symbolindex"
)

// workspaceIndexConcurrency bounds how many files the initial workspace
// walk parses and indexes at once (spec.md §4.4's per-URI serialization
// only protects a single URI; fan-out across distinct files is bounded
// here instead).
const workspaceIndexConcurrency = 8

// Server implements the LSP Server methods gren-lsp supports, wiring every
// core component together (spec.md §4.8). Handlers follow the teacher's
// lock-only-around-state-mutation, publish-outside-the-lock discipline
// (_examples/hemanta212-scaf/lsp/server.go) to avoid deadlocking a
// concurrent request against an in-flight RPC call to the client.
type Server struct {
	client protocol.Client
	logger *zap.Logger
	config gren.ServerConfig

	pool      *cst.Pool
	treeCache *cst.Cache
	queries   *query.Set
	store     *docstore.Store

	compilerClient *compiler.Client
	compilerCache  *compiler.Cache

	mu            sync.RWMutex
	index         *symbolindex.Index
	resolver      *resolve.Resolver
	workspaceRoot string
	initialized   bool
	shutdown      bool

	clientCaps protocol.ClientCapabilities
}

// NewServer creates a Server from its resolved configuration. The Symbol
// Index is opened lazily during Initialize, once the workspace root (and
// therefore the cache directory) is known.
func NewServer(client protocol.Client, logger *zap.Logger, cfg gren.ServerConfig) *Server {
	pool := cst.NewPool()
	treeCache := cst.NewCache(0)
	queries, err := query.NewSet()
	if err != nil {
		logger.Error("failed to compile query set", zap.Error(err))
	}

	compilerClient := compiler.New(cfg)

	return &Server{
		client:         client,
		logger:         logger,
		config:         cfg,
		pool:           pool,
		treeCache:      treeCache,
		queries:        queries,
		store:          docstore.New(pool, treeCache, cfg.ClosedDocumentCapacity),
		compilerClient: compilerClient,
		compilerCache:  compiler.NewCache(compilerClient),
	}
}

// Initialize negotiates capabilities by intersection with the client's
// declared support and opens the Symbol Index under
// <workspace>/.cache/symbols.db (spec.md §4.8, §6).
func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	defer s.traceHandler("Initialize")()

	s.mu.Lock()
	if params.RootURI != "" {
		s.workspaceRoot = PathFromURI(string(params.RootURI))
	} else if params.RootPath != "" {
		s.workspaceRoot = params.RootPath
	}
	s.clientCaps = params.Capabilities
	root := s.workspaceRoot
	s.mu.Unlock()

	dbPath := filepath.Join(root, ".cache", "symbols.db")
	if root == "" {
		dbPath = ":memory:"
	}

	idx, err := symbolindex.Open(dbPath, false)
	if err != nil {
		s.logger.Error("failed to open symbol index", zap.Error(err))
	} else {
		s.mu.Lock()
		s.index = idx
		s.resolver = resolve.New(idx)
		s.mu.Unlock()

		if root != "" {
			go s.indexWorkspace(context.Background(), root, idx)
		}
	}

	if probeErr := s.compilerClient.Probe(ctx); probeErr != nil {
		s.logger.Warn("compiler unavailable, diagnostics disabled", zap.Error(probeErr))
	}

	caps := params.Capabilities
	td := caps.TextDocument

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: false},
			},
			HoverProvider:      td == nil || td.Hover != nil,
			DefinitionProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", " "},
			},
			DocumentSymbolProvider:  td == nil || td.DocumentSymbol != nil,
			ReferencesProvider:      td == nil || td.References != nil,
			WorkspaceSymbolProvider: caps.Workspace == nil || caps.Workspace.Symbol != nil,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: td == nil || (td.Rename != nil && td.Rename.PrepareSupport),
			},
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "gren-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	idx := s.index
	s.mu.Unlock()

	if idx != nil {
		_ = idx.Close()
	}

	s.queries.Close()
	s.treeCache.Close()
	_ = s.pool.Close()

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error { return nil }

// ready reports whether the server has completed initialize/initialized,
// per spec.md §4.8's "requests before initialization return a not-ready
// error".
func (s *Server) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.initialized && !s.shutdown
}

// DidOpen handles textDocument/didOpen, registering the document and
// triggering an initial reindex + diagnostics publish.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	defer s.traceHandler("DidOpen")()

	uri := gren.URI(params.TextDocument.URI)

	if err := s.store.Open(ctx, uri, params.TextDocument.Version, params.TextDocument.Text); err != nil {
		s.logger.Warn("DidOpen failed", zap.String("uri", string(uri)), zap.Error(err))
		return nil
	}

	s.reindexAndPublish(ctx, uri)

	return nil
}

// DidChange handles textDocument/didChange with full-document sync.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	defer s.traceHandler("DidChange")()

	uri := gren.URI(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	doc := s.store.Document(uri)
	if doc == nil {
		return nil
	}

	// Full-sync: the client always sends the complete new text, so the edit
	// spans the whole previous document.
	if err := s.store.Change(ctx, uri, params.TextDocument.Version, []docstore.Edit{replaceWholeDocument(doc.Text, text)}); err != nil {
		s.logger.Warn("DidChange failed", zap.String("uri", string(uri)), zap.Error(err))
		return nil
	}

	s.compilerCache.Invalidate(uri)
	s.reindexAndPublish(ctx, uri)

	return nil
}

// DidSave handles textDocument/didSave by re-publishing diagnostics.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	defer s.traceHandler("DidSave")()

	uri := gren.URI(params.TextDocument.URI)
	if err := s.store.Save(uri); err != nil {
		return nil
	}

	s.compilerCache.Invalidate(uri)
	s.reindexAndPublish(ctx, uri)

	return nil
}

// DidClose handles textDocument/didClose, clearing published diagnostics
// outside any lock (spec.md §4.8).
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	defer s.traceHandler("DidClose")()

	uri := gren.URI(params.TextDocument.URI)
	_ = s.store.Close(uri)

	if err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	}); err != nil {
		s.logger.Error("failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// reindexAndPublish re-extracts symbols/references/imports for uri,
// replaces them in the Symbol Index, and publishes fresh diagnostics. It
// holds no lock across the RPC call to the client.
func (s *Server) reindexAndPublish(ctx context.Context, uri gren.URI) {
	doc := s.store.Document(uri)
	if doc == nil || doc.Tree == nil {
		return
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	if idx != nil {
		content := []byte(doc.Text)
		symbols := s.queries.ExtractSymbols(uri, doc.Tree, content)
		references := s.queries.ExtractReferences(uri, doc.Tree, content)
		imports := s.queries.ExtractImports(uri, doc.Tree, content)

		if err := idx.Reindex(uri, symbols, references, imports); err != nil {
			s.logger.Warn("reindex failed", zap.String("uri", string(uri)), zap.Error(err))
		}
	}

	s.publishDiagnostics(ctx, uri, doc.Text)
}

// indexWorkspace walks root for `.gren` files and indexes each one that
// isn't already open in the editor, so workspace/symbol search and
// cross-file goto-definition/hover work for files the user hasn't
// touched yet (spec.md §4.6.6, SPEC_FULL.md's workspace file discovery
// item). It runs in the background; `initialize` doesn't block on it.
func (s *Server) indexWorkspace(ctx context.Context, root string, idx *symbolindex.Index) {
	fileListQueue := make(chan *gocodewalker.File, 100)
	walker := gocodewalker.NewFileWalker(root, fileListQueue)
	walker.AllowListExtensions = []string{"gren"}
	walker.SetErrorHandler(func(err error) bool {
		s.logger.Warn("workspace walk error", zap.Error(err))
		return true // keep walking past a single unreadable entry
	})

	go func() {
		if err := walker.Start(); err != nil {
			s.logger.Warn("workspace walk failed", zap.String("root", root), zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workspaceIndexConcurrency)

	indexed := 0
	for f := range fileListQueue {
		uri := gren.URI("file://" + f.Location)
		if s.store.Document(uri) != nil {
			continue
		}
		indexed++
		g.Go(func() error {
			s.indexFileOnDisk(gctx, idx, uri)
			return nil
		})
	}

	_ = g.Wait()
	s.logger.Info("workspace index complete", zap.String("root", root), zap.Int("files", indexed))
}

// indexFileOnDisk parses and reindexes a single file read from disk rather
// than from an open editor buffer. Already-open documents are re-indexed by
// reindexAndPublish on their own change events, so a concurrent open isn't a
// correctness problem here: Reindex fully replaces the URI's rows either
// way. Shared by the initial workspace walk and by DidRenameFiles, which
// must reindex a renamed file's new URI without it ever passing through
// DidOpen (spec.md §4.7).
func (s *Server) indexFileOnDisk(ctx context.Context, idx *symbolindex.Index, uri gren.URI) {
	path := compiler.PathForURI(uri)

	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read workspace file", zap.String("path", path), zap.Error(err))
		return
	}

	tree, err := s.pool.Parse(ctx, content)
	if err != nil {
		s.logger.Warn("failed to parse workspace file", zap.String("path", path), zap.Error(err))
		return
	}
	defer tree.Close()

	symbols := s.queries.ExtractSymbols(uri, tree, content)
	references := s.queries.ExtractReferences(uri, tree, content)
	imports := s.queries.ExtractImports(uri, tree, content)

	if err := idx.Reindex(uri, symbols, references, imports); err != nil {
		s.logger.Warn("failed to index workspace file", zap.String("path", path), zap.Error(err))
	}
}

// projectModulePath derives the compiler-facing (project directory,
// module path) pair from uri and the workspace root.
func (s *Server) projectModulePath(uri gren.URI) (projectDir, modulePath string) {
	s.mu.RLock()
	root := s.workspaceRoot
	s.mu.RUnlock()

	path := compiler.PathForURI(uri)
	return root, path
}

// PathFromURI strips a file:// scheme, leaving other URIs untouched.
func PathFromURI(uri string) string {
	return compiler.PathForURI(gren.URI(uri))
}

func replaceWholeDocument(oldText, newText string) docstore.Edit {
	lines := strings.Split(oldText, "\n")
	lastLine := uint32(0)
	lastCol := uint32(0)
	if n := len(lines); n > 0 {
		lastLine = uint32(n - 1)
		lastCol = uint32(len([]rune(lines[n-1])))
	}

	return docstore.Edit{
		Range: gren.Span{
			Start: gren.Point{Line: 0, Character: 0},
			End:   gren.Point{Line: lastLine, Character: lastCol},
		},
		NewText: newText,
	}
}
