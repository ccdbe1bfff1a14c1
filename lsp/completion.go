package lsp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
	"github.com/grenlsp/gren-lsp/resolve"
	"github.com/grenlsp/gren-lsp/rewrite"
)

// completionContext is the classified cursor context driving completion
// dispatch (spec.md §4.6.1 step 1).
type completionContext int

const (
	contextLocalScope completionContext = iota
	contextModuleMember
	contextImport
	contextType
	contextKeyword
)

var moduleMemberRe = regexp.MustCompile(`([A-Z][A-Za-z0-9_]*)\.([A-Za-z0-9_]*)$`)
var wordRe = regexp.MustCompile(`[A-Za-z0-9_]*$`)
var operatorEndRe = regexp.MustCompile(`[-+*/<>=|&$.:]\s*$`)

// classify implements spec.md §4.6.1 step 1.
func classify(prefix string) (ctx completionContext, module string) {
	trimmed := strings.TrimSpace(prefix)

	if m := moduleMemberRe.FindStringSubmatch(prefix); m != nil {
		return contextModuleMember, m[1]
	}

	if strings.HasPrefix(trimmed, "import") {
		return contextImport, ""
	}

	if strings.HasPrefix(trimmed, "type") {
		return contextType, ""
	}
	if idx := strings.LastIndex(prefix, ":"); idx >= 0 && !strings.Contains(prefix[idx:], "=") {
		return contextType, ""
	}

	if trimmed == "" || operatorEndRe.MatchString(prefix) {
		return contextKeyword, ""
	}

	return contextLocalScope, ""
}

// Completion implements textDocument/completion (spec.md §4.6.1).
func (s *Server) Completion(_ context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	defer s.traceHandler("Completion")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	uri := gren.URI(params.TextDocument.URI)
	doc := s.store.Document(uri)
	if doc == nil {
		return &protocol.CompletionList{}, nil
	}

	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()
	if resolver == nil {
		return &protocol.CompletionList{}, nil
	}

	prefix := prefixAt(doc.Text, params.Position)
	word := wordRe.FindString(prefix)
	ctxKind, module := classify(prefix)

	var items []protocol.CompletionItem

	switch ctxKind {
	case contextModuleMember:
		items = s.completeModuleMember(uri, module, word)
	case contextImport, contextType:
		items = s.completeType(word)
	case contextKeyword:
		items = completeKeywords("")
	default:
		items = s.completeLocalScope(resolver, uri, doc, params.Position, word)
	}

	return &protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

func (s *Server) completeModuleMember(uri gren.URI, module, word string) []protocol.CompletionItem {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil
	}

	target := module
	if imports, err := idx.ImportsOf(uri); err == nil {
		for _, im := range imports {
			if im.Alias == module {
				target = im.Module
				break
			}
		}
	}

	candidates, err := idx.ByPrefix(word, 0)
	if err != nil {
		return nil
	}

	var items []protocol.CompletionItem
	for _, sym := range candidates {
		if sym.Container != target {
			continue
		}
		items = append(items, symbolCompletionItem(sym, nil))
	}

	return items
}

func (s *Server) completeType(word string) []protocol.CompletionItem {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	var items []protocol.CompletionItem
	for _, name := range gren.BuiltinTypes {
		if strings.HasPrefix(name, word) {
			items = append(items, protocol.CompletionItem{
				Label: name,
				Kind:  protocol.CompletionItemKindClass,
			})
		}
	}

	if idx == nil {
		return items
	}

	candidates, err := idx.ByPrefix(word, 0)
	if err != nil {
		return items
	}
	for _, sym := range candidates {
		if sym.Kind != gren.SymbolKindType && sym.Kind != gren.SymbolKindTypeAlias {
			continue
		}
		items = append(items, symbolCompletionItem(sym, nil))
	}

	return items
}

func completeKeywords(word string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for _, kw := range gren.Keywords {
		if strings.HasPrefix(kw, word) {
			items = append(items, protocol.CompletionItem{
				Label: kw,
				Kind:  protocol.CompletionItemKindKeyword,
			})
		}
	}
	return items
}

func (s *Server) completeLocalScope(resolver *resolve.Resolver, uri gren.URI, doc *docstore.Document, pos protocol.Position, word string) []protocol.CompletionItem {
	var items []protocol.CompletionItem

	if doc.Tree != nil {
		for _, b := range resolve.LocalScope(doc.Tree, []byte(doc.Text), positionToPoint(pos)) {
			if strings.HasPrefix(b.Name, word) {
				items = append(items, protocol.CompletionItem{
					Label: b.Name,
					Kind:  protocol.CompletionItemKindVariable,
				})
			}
		}
	}

	visible, err := resolver.CompletionVisible(uri, word, 0)
	if err == nil {
		for _, sym := range visible {
			items = append(items, symbolCompletionItem(sym, nil))
		}
	}

	s.mu.RLock()
	limit := s.config.CompletionLimit
	s.mu.RUnlock()

	unimported, err := resolver.AvailableUnimported(uri, word, limit)
	if err == nil {
		items = append(items, s.autoImportItems(uri, doc, unimported)...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortText < items[j].SortText
	})

	return items
}

// autoImportItems builds the exposed and qualified variants for each
// unimported candidate symbol (spec.md §4.6.1 step 3). Exposed variants
// sort before qualified ones.
func (s *Server) autoImportItems(uri gren.URI, doc *docstore.Document, symbols []gren.Symbol) []protocol.CompletionItem {
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil
	}

	imports, err := idx.ImportsOf(uri)
	if err != nil {
		return nil
	}

	var items []protocol.CompletionItem
	for _, sym := range symbols {
		exposedPlan := rewrite.Plan(doc.Text, imports, sym.Container, sym.Name, rewrite.VariantExposed)
		items = append(items, autoImportItem(sym, sym.Name, "0_"+sym.Name, exposedPlan))

		qualifiedPlan := rewrite.Plan(doc.Text, imports, sym.Container, sym.Name, rewrite.VariantQualified)
		qualifiedLabel := sym.Container + "." + sym.Name
		items = append(items, autoImportItem(sym, qualifiedLabel, "1_"+sym.Name, qualifiedPlan))
	}

	return items
}

func autoImportItem(sym gren.Symbol, insertText, sortText string, plan rewrite.ImportPlan) protocol.CompletionItem {
	item := symbolCompletionItem(sym, &insertText)
	item.SortText = sortText
	item.Detail = "from " + sym.Container

	for _, e := range plan.Edits {
		item.AdditionalTextEdits = append(item.AdditionalTextEdits, editToTextEdit(e))
	}

	return item
}

func symbolCompletionItem(sym gren.Symbol, insertText *string) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label: sym.Name,
		Kind:  symbolCompletionKind(sym.Kind),
	}

	if insertText != nil {
		item.InsertText = *insertText
	}

	detail := sym.Signature
	if detail == "" {
		detail = sym.Container
	}
	item.Detail = detail

	if sym.Signature != "" || sym.Doc != "" {
		var doc strings.Builder
		if sym.Signature != "" {
			doc.WriteString("```gren\n" + sym.Name + " : " + sym.Signature + "\n```\n")
		}
		if sym.Doc != "" {
			doc.WriteString("\n" + sym.Doc)
		}
		item.Documentation = protocol.MarkupContent{Kind: protocol.Markdown, Value: doc.String()}
	}

	return item
}

func symbolCompletionKind(kind gren.SymbolKind) protocol.CompletionItemKind {
	switch kind {
	case gren.SymbolKindModule:
		return protocol.CompletionItemKindModule
	case gren.SymbolKindType:
		return protocol.CompletionItemKindEnum
	case gren.SymbolKindTypeAlias:
		return protocol.CompletionItemKindStruct
	case gren.SymbolKindConstructor:
		return protocol.CompletionItemKindEnumMember
	case gren.SymbolKindFunction:
		return protocol.CompletionItemKindFunction
	case gren.SymbolKindConstant:
		return protocol.CompletionItemKindConstant
	case gren.SymbolKindField:
		return protocol.CompletionItemKindField
	case gren.SymbolKindParameter, gren.SymbolKindLocal:
		return protocol.CompletionItemKindVariable
	default:
		return protocol.CompletionItemKindText
	}
}
