// Package cst wraps the tree-sitter grammar bindings: parsing source text
// into concrete syntax trees, pooling parser instances, and caching parsed
// trees keyed by content hash. It is the lowest-level component — the query
// set, the document store, and every language feature engine sit on top of
// it.
package cst

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_ocaml "github.com/tree-sitter/tree-sitter-ocaml/bindings/go"
)

// Language returns the grammar used to parse gren source files. Gren is an
// ML-family, indentation-insensitive functional language closest in surface
// syntax to OCaml among the grammars available to this server, so the
// OCaml implementation grammar stands in for it; module, type, value and
// import declarations all have direct OCaml analogues the Query Set
// targets.
func Language() *tree_sitter.Language {
	return tree_sitter.NewLanguage(tree_sitter_ocaml.LanguageOCaml())
}
