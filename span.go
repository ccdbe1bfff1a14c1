package gren

// URI identifies a document by its stable external identifier (a file://
// URI in practice), used throughout the data model instead of in-memory
// pointers so Symbols, References, and Documents never cycle back into
// each other (spec.md §9, "Cyclic references").
type URI string

// Point is a zero-based row/column position, row counted in lines and
// column counted in UTF-16 code units to match the protocol's position
// unit (spec.md §4.3). It mirrors tree-sitter's Point shape so CST
// conversions stay mechanical.
type Point struct {
	Line      uint32
	Character uint32
}

// Less reports whether p sorts before other.
func (p Point) Less(other Point) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// Span is a half-open [Start, End) source range.
type Span struct {
	Start Point
	End   Point
}

// Contains reports whether s fully contains other, per the document-symbol
// hierarchy invariant (spec.md §8 invariant 6).
func (s Span) Contains(other Span) bool {
	return !other.Start.Less(s.Start) && !s.End.Less(other.End)
}

// ContainsPoint reports whether p lies within s.
func (s Span) ContainsPoint(p Point) bool {
	return !p.Less(s.Start) && p.Less(s.End)
}
