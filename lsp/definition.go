package lsp

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
	"github.com/grenlsp/gren-lsp/resolve"
)

// Definition implements textDocument/definition (spec.md §4.6.3).
// DefinitionProvider is advertised unconditionally (spec.md §4.8), so this
// handler tolerates an uninitialized resolver by returning no result
// rather than a not-ready error.
func (s *Server) Definition(_ context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	defer s.traceHandler("Definition")()

	uri := gren.URI(params.TextDocument.URI)
	doc := s.store.Document(uri)
	if doc == nil || doc.Tree == nil {
		return nil, nil
	}

	content := []byte(doc.Text)
	point := positionToPoint(params.Position)
	node := cst.SmallestNodeAt(doc.Tree, point)
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

	if resolver != nil {
		if candidates, err := resolver.Resolve(uri, name); err == nil && len(candidates) > 0 {
			sym := preferSameFile(candidates, uri)
			return []protocol.Location{{
				URI:   protocol.DocumentURI(sym.URI),
				Range: spanToRange(sym.SelectionRange),
			}}, nil
		}
	}

	if span, ok := resolve.DefinitionInScope(doc.Tree, content, point, name); ok {
		return []protocol.Location{{
			URI:   params.TextDocument.URI,
			Range: spanToRange(span),
		}}, nil
	}

	return nil, nil
}
