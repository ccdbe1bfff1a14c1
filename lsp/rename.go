package lsp

import (
	"context"
	"os"
	"path/filepath"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/compiler"
	"github.com/grenlsp/gren-lsp/cst"
	"github.com/grenlsp/gren-lsp/docstore"
)

// PrepareRename implements textDocument/prepareRename (spec.md §4.6.7).
// It returns the renameable identifier's range, or nil when the position
// isn't on a symbol the Index tracks.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	defer s.traceHandler("PrepareRename")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	uri := gren.URI(params.TextDocument.URI)
	doc := s.store.Document(uri)
	if doc == nil || doc.Tree == nil {
		return nil, nil
	}

	content := []byte(doc.Text)
	node := cst.SmallestNodeAt(doc.Tree, positionToPoint(params.Position))
	if node == nil {
		return nil, nil
	}

	name := cst.Text(node, content)
	if name == "" {
		return nil, nil
	}

	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver == nil {
		return nil, nil
	}

	if candidates, err := resolver.Resolve(uri, name); err != nil || len(candidates) == 0 {
		return nil, nil
	}

	r := spanToRange(cst.ToSpan(node))
	return &r, nil
}

// Rename implements textDocument/rename (spec.md §4.6.7).
func (s *Server) Rename(ctx context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	defer s.traceHandler("Rename")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	uri := gren.URI(params.TextDocument.URI)
	doc := s.store.Document(uri)
	if doc == nil || doc.Tree == nil {
		return nil, &gren.NotOpenError{URI: uri}
	}

	content := []byte(doc.Text)
	node := cst.SmallestNodeAt(doc.Tree, positionToPoint(params.Position))
	if node == nil {
		return nil, nil
	}

	oldName := cst.Text(node, content)
	if oldName == "" {
		return nil, nil
	}

	s.mu.RLock()
	idx := s.index
	resolver := s.resolver
	cfg := s.config
	s.mu.RUnlock()
	if idx == nil || resolver == nil {
		return nil, nil
	}

	candidates, err := resolver.Resolve(uri, oldName)
	if err != nil || len(candidates) == 0 {
		return nil, nil
	}
	target := preferSameFile(candidates, uri)

	if !gren.ValidatesAs(target.Kind, params.NewName) {
		return nil, &gren.RenameInvalidNameError{NewName: params.NewName, Reason: "lexically invalid or reserved"}
	}

	if conflicts, err := idx.ByContainerAndName(target.Container, params.NewName); err == nil {
		for _, c := range conflicts {
			if c.URI != target.URI || c.SelectionRange != target.SelectionRange {
				return nil, &gren.RenameConflictError{OldName: oldName, NewName: params.NewName, ConflictingURI: c.URI}
			}
		}
	}

	refs, err := idx.ReferencesTo(oldName)
	if err != nil {
		return nil, nil
	}

	byURI := make(map[gren.URI][]docstore.Edit)
	for _, ref := range refs {
		resolved, rErr := resolver.Resolve(ref.URI, oldName)
		if rErr == nil && len(candidates) == 1 && !agrees(resolved, target) {
			continue
		}
		byURI[ref.URI] = append(byURI[ref.URI], docstore.Edit{Range: ref.Range, NewText: params.NewName})
	}
	byURI = editsToWorkspaceEditMap(byURI)

	if cfg.BestEffortRenameValidation {
		projectDir, _ := s.projectModulePath(uri)
		if !s.validateRenameByCompilation(ctx, byURI, projectDir) {
			return nil, &gren.RenameConflictError{OldName: oldName, NewName: params.NewName, ConflictingURI: uri}
		}
	}

	changes := make(map[protocol.DocumentURI][]protocol.TextEdit, len(byURI))
	for u, edits := range byURI {
		tedits := make([]protocol.TextEdit, 0, len(edits))
		for _, e := range edits {
			tedits = append(tedits, editToTextEdit(e))
		}
		changes[protocol.DocumentURI(u)] = tedits
	}

	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// validateRenameByCompilation speculatively applies edits to a scratch
// copy of the project and asks the compiler collaborator whether each
// touched module still compiles, per spec.md §4.6.7 step 5. Any failure
// to set up the scratch copy, or an unavailable compiler, skips
// validation (returns true) rather than blocking the rename.
func (s *Server) validateRenameByCompilation(ctx context.Context, edits map[gren.URI][]docstore.Edit, projectDir string) bool {
	if projectDir == "" {
		return true
	}

	scratch, err := os.MkdirTemp("", "gren-lsp-rename-*")
	if err != nil {
		return true
	}
	defer os.RemoveAll(scratch)

	if err := copyDir(projectDir, scratch); err != nil {
		return true
	}

	for uri, fileEdits := range edits {
		path := pathFromURIInDir(uri, projectDir, scratch)
		original, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		updated := applyEdits(string(original), fileEdits)
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return true
		}
	}

	for uri := range edits {
		modulePath := filepath.Join(scratch, relFromProject(uri, projectDir))
		report, err := s.compilerClient.Compile(ctx, uri, scratch, modulePath)
		if err != nil {
			return true
		}
		if len(report.Diagnostics) > 0 || len(report.GlobalErrors) > 0 {
			s.logger.Debug("rename validation failed", zap.String("uri", string(uri)))
			return false
		}
	}

	return true
}

func relFromProject(uri gren.URI, projectDir string) string {
	path := compiler.PathForURI(uri)
	rel, err := filepath.Rel(projectDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return rel
}

func pathFromURIInDir(uri gren.URI, projectDir, scratch string) string {
	return filepath.Join(scratch, relFromProject(uri, projectDir))
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
