package resolve

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/cst"
)

// Binding is a locally bound name: a let-in binding, function parameter,
// or pattern binding enclosing a source position (GLOSSARY "Scope").
type Binding struct {
	Name           string
	SelectionRange gren.Span
}

// localBindingKinds names the grammar node kinds that introduce a local
// binding in the OCaml-derived grammar: let-in bindings and function
// parameters. Pattern constructors (match-case bindings) are walked via
// their pattern subtree separately.
var localBindingKinds = map[string]bool{
	"let_binding": true,
	"parameter":   true,
}

// LocalScope walks up from the smallest node at point, collecting every
// enclosing binding construct's names — let-in bodies, function
// parameters, and when/case-branch patterns — matching the GLOSSARY's
// Scope definition. Results are ordered innermost-first.
func LocalScope(tree *tree_sitter.Tree, content []byte, point gren.Point) []Binding {
	node := cst.SmallestNodeAt(tree, point)
	if node == nil {
		return nil
	}

	var bindings []Binding
	seen := map[string]bool{}

	for n := node; n != nil; n = n.Parent() {
		kind := n.Kind()

		switch kind {
		case "let_binding":
			if name := bindingPatternName(n, content); name != "" && !seen[name] {
				seen[name] = true
				bindings = append(bindings, Binding{Name: name, SelectionRange: cst.ToSpan(n)})
			}
		case "parameter":
			if name := identifierText(n, content); name != "" && !seen[name] {
				seen[name] = true
				bindings = append(bindings, Binding{Name: name, SelectionRange: cst.ToSpan(n)})
			}
		case "match_case":
			for _, name := range patternNames(n, content) {
				if !seen[name] {
					seen[name] = true
					bindings = append(bindings, Binding{Name: name, SelectionRange: cst.ToSpan(n)})
				}
			}
		}
	}

	return bindings
}

// DefinitionInScope walks the enclosing scopes of point searching for a
// binding named name, returning its selection range when found. This is
// goto-definition's AST-walk fallback for local bindings that the Symbol
// Index (module-level only) doesn't track (spec.md §4.6.3).
func DefinitionInScope(tree *tree_sitter.Tree, content []byte, point gren.Point, name string) (gren.Span, bool) {
	for _, b := range LocalScope(tree, content, point) {
		if b.Name == name {
			return b.SelectionRange, true
		}
	}

	return gren.Span{}, false
}

func bindingPatternName(n *tree_sitter.Node, content []byte) string {
	pattern := n.ChildByFieldName("pattern")
	if pattern == nil {
		return ""
	}
	return identifierText(pattern, content)
}

func identifierText(n *tree_sitter.Node, content []byte) string {
	if n.Kind() == "value_name" {
		return cst.Text(n, content)
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "value_name" {
			return cst.Text(child, content)
		}
	}

	return ""
}

func patternNames(n *tree_sitter.Node, content []byte) []string {
	pattern := n.ChildByFieldName("pattern")
	if pattern == nil {
		return nil
	}

	var names []string
	var walk func(node *tree_sitter.Node)
	walk = func(node *tree_sitter.Node) {
		if node == nil {
			return
		}
		if node.Kind() == "value_name" {
			names = append(names, cst.Text(node, content))
			return
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			walk(node.Child(i))
		}
	}
	walk(pattern)

	return names
}
