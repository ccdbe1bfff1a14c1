package lsp

import (
	"context"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
	"github.com/grenlsp/gren-lsp/rewrite"
)

var undefinedSymbolRe = regexp.MustCompile("`([A-Za-z_][A-Za-z0-9_.]*)`")

// conversionPairs lists the short, well-tested standard coercions the
// type-mismatch quick fix offers (spec.md §4.6.8).
var conversionPairs = []struct {
	from, to string
	wrap     func(expr string) string
}{
	{from: "Int", to: "String", wrap: func(e string) string { return "String.fromInt(" + e + ")" }},
	{from: "Float", to: "String", wrap: func(e string) string { return "String.fromFloat(" + e + ")" }},
	{from: "String", to: "Int", wrap: func(e string) string { return "(String.toInt " + e + ")" }},
}

// CodeAction implements textDocument/codeAction (spec.md §4.6.8).
func (s *Server) CodeAction(_ context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	defer s.traceHandler("CodeAction")()

	if !s.ready() {
		return nil, &gren.NotReadyError{}
	}

	uri := gren.URI(params.TextDocument.URI)
	doc := s.store.Document(uri)
	if doc == nil {
		return nil, nil
	}

	var actions []protocol.CodeAction

	if len(params.Context.Diagnostics) == 0 {
		if action, ok := s.addTypeSignatureAction(uri, doc, params.Range); ok {
			actions = append(actions, action)
		}
		return actions, nil
	}

	for _, d := range params.Context.Diagnostics {
		actions = append(actions, s.missingImportActions(uri, doc, d)...)
		if action, ok := unusedImportAction(uri, doc, d); ok {
			actions = append(actions, action)
		}
		actions = append(actions, typeMismatchActions(uri, doc, d)...)
	}

	return actions, nil
}

// missingImportActions implements the missing-import quick-fix: one
// action per module defining a name matching the diagnostic's undefined
// symbol (spec.md §4.6.8).
func (s *Server) missingImportActions(uri gren.URI, doc *docstore.Document, d protocol.Diagnostic) []protocol.CodeAction {
	if !strings.Contains(strings.ToLower(d.Message), "not defined") && !strings.Contains(strings.ToLower(d.Message), "cannot find") {
		return nil
	}

	m := undefinedSymbolRe.FindStringSubmatch(d.Message)
	if m == nil {
		return nil
	}
	name := m[1]

	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()
	if idx == nil {
		return nil
	}

	candidates, err := idx.ByName(name, 0)
	if err != nil {
		return nil
	}

	imports, err := idx.ImportsOf(uri)
	if err != nil {
		imports = nil
	}

	seen := make(map[string]bool)
	var actions []protocol.CodeAction
	for _, c := range candidates {
		if c.Container == "" || seen[c.Container] {
			continue
		}
		seen[c.Container] = true

		plan := rewrite.Plan(doc.Text, imports, c.Container, name, rewrite.VariantExposed)
		if plan.Action == rewrite.ActionUseExisting {
			continue
		}

		edits := make([]protocol.TextEdit, 0, len(plan.Edits))
		for _, e := range plan.Edits {
			edits = append(edits, editToTextEdit(e))
		}

		kind := protocol.QuickFix
		actions = append(actions, protocol.CodeAction{
			Title: "Import " + name + " from " + c.Container,
			Kind:  kind,
			Diagnostics: []protocol.Diagnostic{d},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					protocol.DocumentURI(uri): edits,
				},
			},
		})
	}

	return actions
}

// unusedImportAction deletes the whole import line named by an
// unused-import diagnostic.
func unusedImportAction(uri gren.URI, doc *docstore.Document, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	if !strings.Contains(strings.ToLower(d.Message), "unused import") {
		return protocol.CodeAction{}, false
	}

	edit := docstore.Edit{
		Range: gren.Span{
			Start: gren.Point{Line: d.Range.Start.Line, Character: 0},
			End:   gren.Point{Line: d.Range.Start.Line + 1, Character: 0},
		},
		NewText: "",
	}

	kind := protocol.QuickFix
	return protocol.CodeAction{
		Title:       "Remove unused import",
		Kind:        kind,
		Diagnostics: []protocol.Diagnostic{d},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				protocol.DocumentURI(uri): {editToTextEdit(edit)},
			},
		},
	}, true
}

// typeMismatchActions offers a small, fixed set of standard coercions
// when the diagnostic names a known concrete-type pair (spec.md §4.6.8).
func typeMismatchActions(uri gren.URI, doc *docstore.Document, d protocol.Diagnostic) []protocol.CodeAction {
	var actions []protocol.CodeAction

	for _, pair := range conversionPairs {
		if !strings.Contains(d.Message, pair.from) || !strings.Contains(d.Message, pair.to) {
			continue
		}

		expr := textInRange(doc.Text, d.Range)
		if expr == "" {
			continue
		}

		kind := protocol.QuickFix
		actions = append(actions, protocol.CodeAction{
			Title: "Convert " + pair.from + " to " + pair.to,
			Kind:  kind,
			Diagnostics: []protocol.Diagnostic{d},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					protocol.DocumentURI(uri): {{Range: d.Range, NewText: pair.wrap(expr)}},
				},
			},
		})
	}

	return actions
}

var valueDeclRe = regexp.MustCompile(`^([a-z_][A-Za-z0-9_]*)\s+.*=`)

// addTypeSignatureAction offers to insert a placeholder signature above a
// value declaration at range that has none (spec.md §4.6.8). Triggered
// only when the request carries no diagnostics.
func (s *Server) addTypeSignatureAction(uri gren.URI, doc *docstore.Document, r protocol.Range) (protocol.CodeAction, bool) {
	line := lineAt(doc.Text, r.Start.Line)
	m := valueDeclRe.FindStringSubmatch(line)
	if m == nil {
		return protocol.CodeAction{}, false
	}
	name := m[1]

	if r.Start.Line > 0 {
		prev := strings.TrimSpace(lineAt(doc.Text, r.Start.Line-1))
		if strings.HasPrefix(prev, name+" :") {
			return protocol.CodeAction{}, false
		}
	}

	placeholder := name + " : a\n"
	edit := docstore.Edit{
		Range: gren.Span{
			Start: gren.Point{Line: r.Start.Line, Character: 0},
			End:   gren.Point{Line: r.Start.Line, Character: 0},
		},
		NewText: placeholder,
	}

	kind := protocol.QuickFix
	return protocol.CodeAction{
		Title: "Add type signature",
		Kind:  kind,
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				protocol.DocumentURI(uri): {editToTextEdit(edit)},
			},
		},
	}, true
}

func textInRange(text string, r protocol.Range) string {
	if r.Start.Line != r.End.Line {
		return ""
	}
	line := []rune(lineAt(text, r.Start.Line))
	start, end := int(r.Start.Character), int(r.End.Character)
	if start < 0 || end > len(line) || start > end {
		return ""
	}
	return string(line[start:end])
}
