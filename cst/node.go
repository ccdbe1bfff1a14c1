package cst

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp"
)

// ToSpan converts a tree-sitter node's range to the domain's Span type.
func ToSpan(n *tree_sitter.Node) gren.Span {
	start := n.StartPosition()
	end := n.EndPosition()

	return gren.Span{
		Start: gren.Point{Line: start.Row, Character: start.Column},
		End:   gren.Point{Line: end.Row, Character: end.Column},
	}
}

// ToPoint converts a tree-sitter point to the domain's Point type.
func ToPoint(p tree_sitter.Point) gren.Point {
	return gren.Point{Line: p.Row, Character: p.Column}
}

// FromPoint converts a domain Point to a tree-sitter point.
func FromPoint(p gren.Point) tree_sitter.Point {
	return tree_sitter.Point{Row: p.Line, Column: p.Character}
}

// Text returns the UTF-8 source text a node covers.
func Text(n *tree_sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(content)
}

// SmallestNodeAt returns the smallest named node in tree whose span
// contains point. When point lands on an anonymous/punctuation node, the
// nearest enclosing named node is returned; a point past the end of the
// tree is clamped by tree-sitter rather than yielding nil. It returns nil
// only when the tree has no root. Every identifier-driven feature (hover,
// definition, references, rename, completion's token-before-cursor
// classification) starts here.
func SmallestNodeAt(tree *tree_sitter.Tree, point gren.Point) *tree_sitter.Node {
	root := tree.RootNode()
	if root == nil {
		return nil
	}

	tsPoint := FromPoint(point)
	node := root.NamedDescendantForPointRange(tsPoint, tsPoint)
	if node == nil {
		return nil
	}

	return node
}

// HasError reports whether tree contains a syntax error node anywhere
// (true for a tree with no root).
func HasError(tree *tree_sitter.Tree) bool {
	root := tree.RootNode()
	if root == nil {
		return true
	}
	return root.HasError()
}
