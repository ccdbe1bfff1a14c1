package typesig

import (
	"strings"

	"github.com/alecthomas/participle/v2"
)

// Expr is one term in a signature: a type application (a constructor or
// type variable optionally applied to argument types), a tuple, or a
// record.
type Expr struct {
	Record  *Record `( @@`
	Tuple   *Tuple  `| @@`
	Applied *Applied `| @@ )`
}

// Applied is a type constructor or variable applied to zero or more
// argument types, e.g. "Maybe String" or "Dict k v".
type Applied struct {
	Name string  `@Ident`
	Args []*Expr `@@*`
}

// Tuple is a parenthesized, comma-separated list of types, including the
// degenerate single-element case "(Int)" used for grouping.
type Tuple struct {
	Elements []*Expr `"(" (@@ ("," @@)*)? ")"`
}

// Record is a brace-delimited set of field: type pairs.
type Record struct {
	Fields []*Field `"{" (@@ ("," @@)*)? "}"`
}

// Field is one record field within a Record literal.
type Field struct {
	Name string `@Ident ":"`
	Type *Expr  `@@`
}

// Signature is a full type signature: zero or more parameter types
// followed by a return type, joined by "->".
type Signature struct {
	Terms []*Expr `@@ ("->" @@)*`
}

// Params returns every term but the last (the function's parameter
// types); a signature with one term is a value of that type with no
// parameters.
func (s *Signature) Params() []*Expr {
	if len(s.Terms) <= 1 {
		return nil
	}
	return s.Terms[:len(s.Terms)-1]
}

// Return returns the signature's final term — the value's own type for a
// non-function signature, or the function's result type otherwise.
func (s *Signature) Return() *Expr {
	if len(s.Terms) == 0 {
		return nil
	}
	return s.Terms[len(s.Terms)-1]
}

var sigParser = participle.MustBuild[Signature](
	participle.Lexer(sigLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses a type signature string (the text captured by the
// annotation.signature query, e.g. "String -> Maybe Int") into a
// Signature. Malformed signatures (signatures the grammar didn't expect,
// or hand-written documentation strings) return an error.
func Parse(text string) (*Signature, error) {
	return sigParser.ParseString("", strings.TrimSpace(text))
}

// String renders e back into gren's concrete syntax.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}

	switch {
	case e.Record != nil:
		parts := make([]string, 0, len(e.Record.Fields))
		for _, f := range e.Record.Fields {
			parts = append(parts, f.Name+" : "+f.Type.String())
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case e.Tuple != nil:
		parts := make([]string, 0, len(e.Tuple.Elements))
		for _, el := range e.Tuple.Elements {
			parts = append(parts, el.String())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case e.Applied != nil:
		parts := []string{e.Applied.Name}
		for _, a := range e.Applied.Args {
			parts = append(parts, a.String())
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// String renders the full signature back to its arrow-joined concrete
// form.
func (s *Signature) String() string {
	parts := make([]string, 0, len(s.Terms))
	for _, t := range s.Terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " -> ")
}
