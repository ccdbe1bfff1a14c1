package lsp

import (
	"context"
	"sort"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
)

// DocumentSymbol implements textDocument/documentSymbol (spec.md §4.6.5).
// The hierarchy is built purely from range containment: a type
// declaration's full range spans its constructors, so they nest under it.
// The index holds no module symbol, so type and value declarations are
// the roots.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	defer s.traceHandler("DocumentSymbol")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	uri := gren.URI(params.TextDocument.URI)
	symbols, err := idx.ByURI(uri)
	if err != nil || len(symbols) == 0 {
		return nil, nil
	}

	return buildSymbolHierarchy(symbols), nil
}

type symbolNode struct {
	sym      gren.Symbol
	children []*symbolNode
}

func buildSymbolHierarchy(symbols []gren.Symbol) []protocol.DocumentSymbol {
	sort.SliceStable(symbols, func(i, j int) bool {
		return startsBefore(symbols[i].Range.Start, symbols[j].Range.Start)
	})

	var roots []*symbolNode
	var stack []*symbolNode

	for _, sym := range symbols {
		node := &symbolNode{sym: sym}

		for len(stack) > 0 && !spanContains(stack[len(stack)-1].sym.Range, sym.Range) {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
		}

		stack = append(stack, node)
	}

	result := make([]protocol.DocumentSymbol, 0, len(roots))
	for _, r := range roots {
		result = append(result, toDocumentSymbol(r))
	}

	return result
}

func toDocumentSymbol(n *symbolNode) protocol.DocumentSymbol {
	ds := protocol.DocumentSymbol{
		Name:           n.sym.Name,
		Kind:           symbolKindToLSP(n.sym.Kind),
		Range:          spanToRange(n.sym.Range),
		SelectionRange: spanToRange(n.sym.SelectionRange),
	}

	if n.sym.Signature != "" {
		ds.Detail = n.sym.Signature
	}

	for _, c := range n.children {
		child := toDocumentSymbol(c)
		ds.Children = append(ds.Children, child)
	}

	return ds
}

func symbolKindToLSP(kind gren.SymbolKind) protocol.SymbolKind {
	switch kind {
	case gren.SymbolKindModule:
		return protocol.SymbolKindModule
	case gren.SymbolKindType:
		return protocol.SymbolKindEnum
	case gren.SymbolKindTypeAlias:
		return protocol.SymbolKindStruct
	case gren.SymbolKindConstructor:
		return protocol.SymbolKindEnumMember
	case gren.SymbolKindFunction:
		return protocol.SymbolKindFunction
	case gren.SymbolKindConstant:
		return protocol.SymbolKindConstant
	case gren.SymbolKindField:
		return protocol.SymbolKindField
	case gren.SymbolKindParameter, gren.SymbolKindLocal:
		return protocol.SymbolKindVariable
	default:
		return protocol.SymbolKindVariable
	}
}

func startsBefore(a, b gren.Point) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

func spanContains(outer, inner gren.Span) bool {
	if startsBefore(inner.Start, outer.Start) {
		return false
	}
	if startsBefore(outer.End, inner.End) {
		return false
	}
	return true
}
