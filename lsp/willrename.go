package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/compiler"
	"github.com/grenlsp/gren-lsp/rewrite"
)

// WillRenameFiles implements workspace/willRenameFiles: renaming a .gren
// file renames its module, so every importer's import clauses and the
// file's own module declaration need rewriting (spec.md §4.7
// plan_rename_module).
func (s *Server) WillRenameFiles(_ context.Context, params *protocol.RenameFilesParams) (*protocol.WorkspaceEdit, error) {
	defer s.traceHandler("WillRenameFiles")()

	s.mu.RLock()
	idx := s.index
	root := s.workspaceRoot
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit)

	for _, f := range params.Files {
		oldURI := gren.URI(f.OldURI)
		newURI := gren.URI(f.NewURI)

		if !strings.HasSuffix(string(oldURI), ".gren") {
			continue
		}

		oldModule := moduleNameForURI(oldURI, root)
		newModule := moduleNameForURI(newURI, root)
		if oldModule == "" || newModule == "" || oldModule == newModule {
			continue
		}

		renamed := rewrite.RenameModuleFile{URI: newURI, Text: s.readText(oldURI)}

		importers, err := idx.FilesImportingModule(oldModule)
		if err != nil {
			continue
		}

		var others []rewrite.RenameModuleFile
		for _, importerURI := range importers {
			if importerURI == oldURI {
				continue
			}
			imports, err := idx.ImportsOf(importerURI)
			if err != nil {
				continue
			}
			others = append(others, rewrite.RenameModuleFile{
				URI:     importerURI,
				Text:    s.readText(importerURI),
				Imports: imports,
			})
		}

		edits := rewrite.PlanRenameModule(oldModule, newModule, renamed, others)
		for uri, fileEdits := range edits {
			tedits := make([]protocol.TextEdit, 0, len(fileEdits))
			for _, e := range fileEdits {
				tedits = append(tedits, editToTextEdit(e))
			}
			changes[protocol.DocumentURI(uri)] = append(changes[protocol.DocumentURI(uri)], tedits...)
		}
	}

	if len(changes) == 0 {
		return nil, nil
	}

	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// DidRenameFiles implements workspace/didRenameFiles. The editor may not
// route a rename through didOpen/didClose on the new path (many clients
// just move the file on disk), so the Symbol Index must be reindexed here
// directly: the old URI's rows are dropped and the new URI is parsed and
// indexed from its on-disk content (spec.md §4.7's rename contract).
func (s *Server) DidRenameFiles(ctx context.Context, params *protocol.RenameFilesParams) error {
	defer s.traceHandler("DidRenameFiles")()

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	for _, f := range params.Files {
		oldURI := gren.URI(f.OldURI)
		newURI := gren.URI(f.NewURI)

		s.logger.Info("file renamed", zap.String("old", string(oldURI)), zap.String("new", string(newURI)))

		if !strings.HasSuffix(string(newURI), ".gren") || idx == nil {
			continue
		}

		if oldURI != newURI {
			if err := idx.Reindex(oldURI, nil, nil, nil); err != nil {
				s.logger.Warn("failed to clear renamed file's old index entry", zap.String("uri", string(oldURI)), zap.Error(err))
			}
		}

		s.indexFileOnDisk(ctx, idx, newURI)
	}

	return nil
}

// readText returns uri's content from the Document Store if open,
// otherwise reads it from disk.
func (s *Server) readText(uri gren.URI) string {
	if doc := s.store.Document(uri); doc != nil {
		return doc.Text
	}

	data, err := os.ReadFile(compiler.PathForURI(uri))
	if err != nil {
		return ""
	}
	return string(data)
}

// moduleNameForURI derives a dotted module name from a file:// URI rooted
// under <root>/src, e.g. src/Http/Client.gren -> Http.Client (grounded on
// the original's extract_module_name).
func moduleNameForURI(uri gren.URI, root string) string {
	path := compiler.PathForURI(uri)
	path = strings.TrimSuffix(path, ".gren")

	srcDir := filepath.Join(root, "src")
	rel, err := filepath.Rel(srcDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}

	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}
