// Package typesig parses the type signature strings the Query Set attaches
// to value declarations (spec.md §4.2's type-annotation capture) into a
// structured shape hover and completion can render without re-splitting
// strings by hand.
package typesig

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// sigLexer tokenizes a gren type signature: identifiers (both lower-start
// type variables and upper-start type constructors), the function arrow,
// grouping punctuation, and whitespace (elided by the parser).
var sigLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Arrow", Pattern: `->`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Pipe", Pattern: `\|`},
	{Name: "Whitespace", Pattern: `\s+`},
})
