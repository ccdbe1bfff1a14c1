package lsp

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
)

// Symbol implements workspace/symbol, delegating to the Symbol Index's
// ranked search (spec.md §4.6.6).
func (s *Server) Symbol(_ context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	defer s.traceHandler("Symbol")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	s.mu.RLock()
	idx := s.index
	limit := s.config.WorkspaceSymbolLimit
	s.mu.RUnlock()
	if idx == nil {
		return nil, nil
	}

	symbols, err := idx.Search(params.Query, limit)
	if err != nil {
		return nil, nil
	}

	results := make([]protocol.SymbolInformation, 0, len(symbols))
	for _, sym := range symbols {
		info := protocol.SymbolInformation{
			Name: sym.Name,
			Kind: symbolKindToLSP(sym.Kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(sym.URI),
				Range: spanToRange(sym.SelectionRange),
			},
		}
		if sym.Container != "" {
			info.ContainerName = sym.Container
		}
		results = append(results, info)
	}

	return results, nil
}
