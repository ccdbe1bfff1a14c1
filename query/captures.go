package query

import (
	"bytes"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
)

// docCommentRe matches a `{-| ... -}` block ending at the very end of the
// text it's applied to (only whitespace may follow), so it only fires when
// the comment sits immediately above the declaration it documents.
var docCommentRe = regexp.MustCompile(`(?s)\{-\|(.*?)-\}\s*\z`)

// leadingDocComment returns the doc comment immediately preceding
// startByte in content, or "" if there is none. The grammar doesn't
// surface `{-| ... -}` blocks as a distinct node kind, so this scans the
// raw source text rather than walking the tree.
func leadingDocComment(content []byte, startByte uint) string {
	if int(startByte) > len(content) {
		startByte = uint(len(content))
	}
	// Match from the last "{-|" so an earlier doc comment in the file
	// can't become the leftmost match and swallow the code in between.
	prefix := content[:startByte]
	open := bytes.LastIndex(prefix, []byte("{-|"))
	if open < 0 {
		return ""
	}
	m := docCommentRe.FindSubmatch(prefix[open:])
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

// ExtractModule returns the module name declared in tree, or "" if the
// file has no module declaration (a degenerate but parseable document).
func (s *Set) ExtractModule(tree *tree_sitter.Tree, content []byte) string {
	q := s.Query(FamilyModuleDeclaration)
	if q == nil {
		return ""
	}

	root := tree.RootNode()
	cursor := newCursor()
	defer cursor.Close()

	captures := cursor.Captures(q, root, content)
	names := q.CaptureNames()

	for {
		match, idx := captures.Next()
		if match == nil {
			break
		}
		capture := match.Captures[idx]
		if names[capture.Index] == "module.name" {
			return cst.Text(&capture.Node, content)
		}
	}

	return ""
}

// ExtractSymbols walks the type-declaration and value-declaration families
// and returns the symbols declared in uri: type and constructor symbols
// first, then value symbols, each group in source order.
func (s *Set) ExtractSymbols(uri gren.URI, tree *tree_sitter.Tree, content []byte) []gren.Symbol {
	container := s.ExtractModule(tree, content)

	var symbols []gren.Symbol
	symbols = append(symbols, s.extractTypeSymbols(uri, container, tree, content)...)
	symbols = append(symbols, s.extractValueSymbols(uri, container, tree, content)...)

	return symbols
}

func (s *Set) extractTypeSymbols(uri gren.URI, container string, tree *tree_sitter.Tree, content []byte) []gren.Symbol {
	q := s.Query(FamilyTypeDeclaration)
	if q == nil {
		return nil
	}

	root := tree.RootNode()
	cursor := newCursor()
	defer cursor.Close()

	names := q.CaptureNames()
	captures := cursor.Captures(q, root, content)

	var symbols []gren.Symbol
	var currentTypeName string
	var currentTypeSpan gren.Span

	for {
		match, idx := captures.Next()
		if match == nil {
			break
		}
		capture := match.Captures[idx]

		switch names[capture.Index] {
		case "type.name":
			currentTypeName = cst.Text(&capture.Node, content)
			currentTypeSpan = cst.ToSpan(&capture.Node)
			declSpan := currentTypeSpan
			if binding := capture.Node.Parent(); binding != nil {
				declSpan = cst.ToSpan(binding)
			}
			symbols = append(symbols, gren.Symbol{
				Name:           currentTypeName,
				Kind:           gren.SymbolKindType,
				URI:            uri,
				Range:          declSpan,
				SelectionRange: currentTypeSpan,
				Container:      container,
				Doc:            leadingDocComment(content, capture.Node.StartByte()),
			})
		case "type.constructor":
			span := cst.ToSpan(&capture.Node)
			symbols = append(symbols, gren.Symbol{
				Name:           cst.Text(&capture.Node, content),
				Kind:           gren.SymbolKindConstructor,
				URI:            uri,
				Range:          span,
				SelectionRange: span,
				Container:      container,
			})
		}
	}

	return symbols
}

func (s *Set) extractValueSymbols(uri gren.URI, container string, tree *tree_sitter.Tree, content []byte) []gren.Symbol {
	q := s.Query(FamilyValueDeclaration)
	if q == nil {
		return nil
	}

	root := tree.RootNode()
	cursor := newCursor()
	defer cursor.Close()

	names := q.CaptureNames()
	captures := cursor.Captures(q, root, content)

	type decl struct {
		name      string
		rng       gren.Span
		sel       gren.Span
		declStart uint
	}

	var values []decl
	signatures := map[string]string{}
	annotationStarts := map[string]uint{}

	var pendingName string
	var pendingRange gren.Span
	var pendingSel gren.Span
	var pendingDeclStart uint
	var pendingAnnotationName string
	var pendingAnnotationStart uint

	for {
		match, idx := captures.Next()
		if match == nil {
			break
		}
		capture := match.Captures[idx]

		switch names[capture.Index] {
		case "value.decl":
			pendingRange = cst.ToSpan(&capture.Node)
			pendingDeclStart = capture.Node.StartByte()
		case "value.name":
			pendingName = cst.Text(&capture.Node, content)
			pendingSel = cst.ToSpan(&capture.Node)
		case "value.body":
			if pendingName != "" {
				values = append(values, decl{name: pendingName, rng: pendingRange, sel: pendingSel, declStart: pendingDeclStart})
				pendingName = ""
			}
		case "annotation.decl":
			pendingAnnotationStart = capture.Node.StartByte()
		case "annotation.name":
			pendingAnnotationName = cst.Text(&capture.Node, content)
		case "annotation.signature":
			if pendingAnnotationName != "" {
				signatures[pendingAnnotationName] = cst.Text(&capture.Node, content)
				annotationStarts[pendingAnnotationName] = pendingAnnotationStart
				pendingAnnotationName = ""
			}
		}
	}

	symbols := make([]gren.Symbol, 0, len(values))
	for _, v := range values {
		docStart, ok := annotationStarts[v.name]
		if !ok {
			docStart = v.declStart
		}
		symbols = append(symbols, gren.Symbol{
			Name:           v.name,
			Kind:           gren.SymbolKindFunction,
			URI:            uri,
			Range:          v.rng,
			SelectionRange: v.sel,
			Container:      container,
			Signature:      signatures[v.name],
			Doc:            leadingDocComment(content, docStart),
		})
	}

	return symbols
}

// ExtractImports returns the import clauses declared in tree.
func (s *Set) ExtractImports(uri gren.URI, tree *tree_sitter.Tree, content []byte) []gren.ImportRecord {
	q := s.Query(FamilyImportClause)
	if q == nil {
		return nil
	}

	root := tree.RootNode()
	cursor := newCursor()
	defer cursor.Close()

	names := q.CaptureNames()
	captures := cursor.Captures(q, root, content)

	recordsByModule := map[string]*gren.ImportRecord{}
	var order []string

	get := func(module string) *gren.ImportRecord {
		if rec, ok := recordsByModule[module]; ok {
			return rec
		}
		rec := &gren.ImportRecord{SourceURI: uri, Module: module}
		recordsByModule[module] = rec
		order = append(order, module)
		return rec
	}

	var currentModule string

	for {
		match, idx := captures.Next()
		if match == nil {
			break
		}
		capture := match.Captures[idx]

		switch names[capture.Index] {
		case "import.module":
			currentModule = cst.Text(&capture.Node, content)
			get(currentModule)
		case "import.alias":
			if currentModule != "" {
				get(currentModule).Alias = cst.Text(&capture.Node, content)
			}
		}
	}

	records := make([]gren.ImportRecord, 0, len(order))
	for _, m := range order {
		records = append(records, *recordsByModule[m])
	}

	return records
}

// ExtractReferences returns every identifier occurrence tree-wide that the
// Symbol Index tracks as a Reference.
func (s *Set) ExtractReferences(uri gren.URI, tree *tree_sitter.Tree, content []byte) []gren.Reference {
	q := s.Query(FamilyReference)
	if q == nil {
		return nil
	}

	root := tree.RootNode()
	cursor := newCursor()
	defer cursor.Close()

	names := q.CaptureNames()
	captures := cursor.Captures(q, root, content)

	var refs []gren.Reference

	for {
		match, idx := captures.Next()
		if match == nil {
			break
		}
		capture := match.Captures[idx]

		if names[capture.Index] != "reference.name" {
			continue
		}

		name := cst.Text(&capture.Node, content)
		if name == "" || strings.TrimSpace(name) == "" {
			continue
		}

		refs = append(refs, gren.Reference{
			SymbolName: name,
			URI:        uri,
			Range:      cst.ToSpan(&capture.Node),
			Kind:       gren.ReferenceKindUsage,
		})
	}

	return refs
}
