// Package gren holds the data model and cross-cutting types shared by every
// component of the language server core: grammar bindings, the query set,
// the document store, the symbol index, the resolver, and the language
// feature engines.
package gren

// Keywords is the fixed keyword list offered by the Keyword completion
// context (spec.md §4.6.1).
var Keywords = []string{
	"module", "exposing", "import", "as", "type", "alias",
	"let", "in", "if", "then", "else", "case", "of",
	"true", "false",
}

// BuiltinTypes is offered by the Type completion context alongside indexed
// type/type-alias symbols.
var BuiltinTypes = []string{
	"Int", "Float", "String", "Char", "Bool", "Unit",
	"List", "Array", "Maybe", "Result",
}

// ReservedWords may not be used as a rename target (spec.md §4.6.7 step 1).
var ReservedWords = map[string]bool{
	"module": true, "exposing": true, "import": true, "as": true,
	"type": true, "alias": true, "let": true, "in": true,
	"if": true, "then": true, "else": true, "case": true, "of": true,
	"true": true, "false": true,
}
