// Package query compiles the tree patterns that translate a gren CST into
// the domain's Symbol, Reference and ImportRecord values. The language-
// feature engines talk to trees through the typed captures captures.go
// produces; outside this package, only resolve/scope.go's local-scope walk
// switches on grammar node kinds directly.
package query

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/grenlsp/gren-lsp/cst"
)

// Query family sources, expressed against the OCaml grammar's node kinds —
// the nearest available ML-family grammar to gren's module/type/value/open
// surface syntax (cst.Language). Each pattern is named so CaptureNames can
// be matched back to a logical field without positional guessing.
const (
	moduleDeclarationSrc = `
(module_definition
  (module_binding
    name: (module_name) @module.name))
`

	typeDeclarationSrc = `
(type_definition
  (type_binding
    name: (type_constructor) @type.name
    (variant_declaration
      (constructor_declaration
        name: (constructor_name) @type.constructor)?)?))
`

	valueDeclarationSrc = `
(value_definition
  (let_binding
    pattern: (value_name) @value.name
    body: (_) @value.body)) @value.decl

(value_specification
  (value_name) @annotation.name
  (_) @annotation.signature) @annotation.decl
`

	importClauseSrc = `
(open_module
  module_path: (module_path) @import.module) @import.decl

(open_module
  module_path: (module_path) @import.module
  alias: (module_name) @import.alias) @import.aliased
`

	referenceSrc = `
(value_path
  (value_name) @reference.name) @reference.usage

(constructor_path
  (constructor_name) @reference.name) @reference.usage

(field_get_expression
  (value_path) @reference.base)

(module_path
  (module_name) @reference.qualifier)
`
)

// Family identifies one of the required query families (spec §4.2).
type Family string

const (
	FamilyModuleDeclaration Family = "module-declaration"
	FamilyTypeDeclaration   Family = "type-declaration"
	FamilyValueDeclaration  Family = "value-declaration"
	FamilyImportClause      Family = "import-clause"
	FamilyReference         Family = "reference"
)

var allFamilies = map[Family]string{
	FamilyModuleDeclaration: moduleDeclarationSrc,
	FamilyTypeDeclaration:   typeDeclarationSrc,
	FamilyValueDeclaration:  valueDeclarationSrc,
	FamilyImportClause:      importClauseSrc,
	FamilyReference:         referenceSrc,
}

// Set holds every compiled query family, shared across requests — queries
// are compiled once at startup and are safe for concurrent use by multiple
// QueryCursors (spec §4.2, §5).
type Set struct {
	mu      sync.RWMutex
	lang    *tree_sitter.Language
	queries map[Family]*tree_sitter.Query
}

// NewSet compiles every required query family against the gren grammar.
func NewSet() (*Set, error) {
	lang := cst.Language()

	s := &Set{
		lang:    lang,
		queries: make(map[Family]*tree_sitter.Query, len(allFamilies)),
	}

	for family, src := range allFamilies {
		q, err := tree_sitter.NewQuery(lang, src)
		if err != nil {
			return nil, fmt.Errorf("query: compile %s: %w", family, err)
		}
		s.queries[family] = q
	}

	return s, nil
}

// Query returns the compiled query for a family.
func (s *Set) Query(family Family) *tree_sitter.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queries[family]
}

// Close releases every compiled query.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.queries {
		q.Close()
	}
	s.queries = nil
}

// newCursor returns a fresh query cursor; cursors are not safe for
// concurrent reuse so every extraction call gets its own.
func newCursor() *tree_sitter.QueryCursor {
	return tree_sitter.NewQueryCursor()
}
