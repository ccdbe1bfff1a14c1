package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
)

// Hover implements textDocument/hover (spec.md §4.6.2).
func (s *Server) Hover(_ context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	defer s.traceHandler("Hover")()

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

	candidates, err := resolver.Resolve(uri, name)
	if err != nil || len(candidates) == 0 {
		return nil, nil
	}

	sym := preferSameFile(candidates, uri)

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: renderHover(sym, uri)},
		Range:    spanToRange(cst.ToSpan(node)),
	}, nil
}

// preferSameFile returns the first candidate defined in uri, or the
// first candidate overall when none are (spec.md §4.6.2).
func preferSameFile(candidates []gren.Symbol, uri gren.URI) gren.Symbol {
	for _, c := range candidates {
		if c.URI == uri {
			return c
		}
	}
	return candidates[0]
}

// renderHover builds the markdown shown for sym: a fenced type signature,
// the doc comment, and for cross-module symbols a line naming the source
// module (spec.md §4.6.2).
func renderHover(sym gren.Symbol, requestURI gren.URI) string {
	var b strings.Builder

	if sym.Signature != "" {
		b.WriteString("```gren\n" + sym.Name + " : " + sym.Signature + "\n```\n")
	} else {
		b.WriteString("```gren\n" + sym.Name + "\n```\n")
	}

	if sym.Doc != "" {
		b.WriteString("\n" + sym.Doc + "\n")
	}

	if sym.Container != "" && sym.URI != requestURI {
		b.WriteString("\n_from " + sym.Container + "_\n")
	}

	return b.String()
}
