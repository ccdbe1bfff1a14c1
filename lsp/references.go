package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
)

// References implements textDocument/references (spec.md §4.6.4).
// Disambiguation requires name equality AND resolver agreement; when the
// defining symbol itself is ambiguous, every name match is returned and
// the ambiguity is logged rather than silently guessing.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	defer s.traceHandler("References")()

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
	idx := s.index
	resolver := s.resolver
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	targets, _ := resolver.Resolve(uri, name)

	refs, err := idx.ReferencesTo(name)
	if err != nil {
		return nil, nil
	}

	ambiguous := len(targets) > 1
	if ambiguous {
		s.logger.Debug("references: ambiguous defining symbol, returning all name matches",
			zap.String("name", name), zap.Int("candidates", len(targets)))
	}

	var locations []protocol.Location
	for _, ref := range refs {
		if !params.Context.IncludeDeclaration &&
			(ref.Kind == gren.ReferenceKindDeclaration || ref.Kind == gren.ReferenceKindDefinition) {
			continue
		}

		if len(targets) == 1 && resolver != nil {
			resolved, err := resolver.Resolve(ref.URI, name)
			if err == nil && !agrees(resolved, targets[0]) {
				continue
			}
		}

		locations = append(locations, protocol.Location{
			URI:   protocol.DocumentURI(ref.URI),
			Range: spanToRange(ref.Range),
		})
	}

	return locations, nil
}

// agrees reports whether target appears among resolved, identifying a
// symbol by its defining URI and selection range.
func agrees(resolved []gren.Symbol, target gren.Symbol) bool {
	for _, r := range resolved {
		if r.URI == target.URI && r.SelectionRange == target.SelectionRange {
			return true
		}
	}
	return false
}
