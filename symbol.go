package gren

import "time"

// SymbolKind enumerates the declaration kinds the Symbol Index tracks
// (spec.md §3 "Symbol").
type SymbolKind string

const (
	SymbolKindModule      SymbolKind = "module"
	SymbolKindType        SymbolKind = "type"
	SymbolKindConstructor SymbolKind = "constructor"
	SymbolKindFunction    SymbolKind = "function"
	SymbolKindConstant    SymbolKind = "constant"
	SymbolKindTypeAlias   SymbolKind = "type_alias"
	SymbolKindField       SymbolKind = "field"
	SymbolKindParameter   SymbolKind = "parameter"
	SymbolKindLocal       SymbolKind = "local"
)

// Symbol is a named declaration, bound to exactly one defining file
// (spec.md §3 invariant: "every symbol is bound to exactly one defining
// file; re-indexing a file replaces all of that file's symbols
// atomically").
type Symbol struct {
	Name string
	Kind SymbolKind

	URI URI

	// Range is the whole-declaration span; SelectionRange is the
	// name-only span (the GLOSSARY's "Selection range").
	Range          Span
	SelectionRange Span

	// Container is the enclosing module name, if any (top-level module
	// symbols have no container; everything else does).
	Container string

	// Signature is the type signature string attached by a preceding
	// type-annotation (spec.md §4.2 value-declaration / type-annotation
	// query pair), or empty.
	Signature string

	// Doc is the symbol's leading doc comment, or empty.
	Doc string

	CreatedAt time.Time
}

// ReferenceKind distinguishes declaration/definition head occurrences
// from ordinary usages (spec.md §3 "Reference").
type ReferenceKind string

const (
	ReferenceKindDeclaration ReferenceKind = "declaration"
	ReferenceKindDefinition  ReferenceKind = "definition"
	ReferenceKindUsage       ReferenceKind = "usage"
)

// Reference is a textual occurrence of a name.
type Reference struct {
	SymbolName string
	URI        URI
	Range      Span
	Kind       ReferenceKind
}

// ImportRecord is the indexed representation of a single import clause.
// At most one ImportRecord exists per (file, module) pair; the resolver
// merges duplicate source-level imports of the same module (spec.md §3).
type ImportRecord struct {
	SourceURI URI
	Module    string
	Alias     string   // empty if no alias
	Exposed   []string // explicit exposed value/type names
	ExposeAll bool      // the ".." exposing-all marker
}

// Exposes reports whether the import record makes name usable unqualified
// in its source file, per spec.md §4.5 rule 2.
func (r ImportRecord) Exposes(name string) bool {
	if r.ExposeAll {
		return true
	}
	for _, n := range r.Exposed {
		if n == name {
			return true
		}
	}
	return false
}
