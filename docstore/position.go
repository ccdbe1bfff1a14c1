package docstore

import (
	"strings"
	"unicode/utf16"

	"github.com/grenlsp/gren-lsp"
)

// OffsetForPoint converts a UTF-16-unit line/character position into a byte
// offset into text. Positions beyond the end of a line clamp to the line's
// length; positions beyond the end of the text clamp to len(text) — callers
// that need to distinguish "past EOF" (e.g. Hover) check the clamped point
// against the original request first.
func OffsetForPoint(text string, p gren.Point) int {
	lines := splitLinesKeepEnds(text)
	if int(p.Line) >= len(lines) {
		return len(text)
	}

	offset := 0
	for i := 0; i < int(p.Line); i++ {
		offset += len(lines[i])
	}

	return offset + utf16OffsetInLine(lines[p.Line], p.Character)
}

// PointForOffset converts a byte offset into text back into a UTF-16-unit
// line/character position.
func PointForOffset(text string, offset int) gren.Point {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	lines := splitLinesKeepEnds(text)

	consumed := 0
	for i, line := range lines {
		if consumed+len(line) > offset || i == len(lines)-1 {
			return gren.Point{
				Line:      uint32(i),
				Character: utf16CharacterForByteOffset(line, offset-consumed),
			}
		}
		consumed += len(line)
	}

	return gren.Point{}
}

func splitLinesKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	lines = append(lines, text[start:])

	return lines
}

// utf16OffsetInLine converts a UTF-16 character count within a single line
// (including its terminator, if any) into a byte offset.
func utf16OffsetInLine(line string, character uint32) int {
	trimmed := strings.TrimRight(line, "\r\n")

	units := utf16.Encode([]rune(trimmed))
	if int(character) >= len(units) {
		return len(trimmed)
	}

	return len(string(utf16.Decode(units[:character])))
}

// utf16CharacterForByteOffset is the inverse of utf16OffsetInLine.
func utf16CharacterForByteOffset(line string, byteOffset int) uint32 {
	trimmed := strings.TrimRight(line, "\r\n")
	if byteOffset > len(trimmed) {
		byteOffset = len(trimmed)
	}
	if byteOffset < 0 {
		byteOffset = 0
	}

	prefix := trimmed[:byteOffset]

	return uint32(len(utf16.Encode([]rune(prefix))))
}

// ApplyEdit replaces the text within [start, end) (UTF-16 line/character
// positions) with newText, returning the resulting document text.
func ApplyEdit(text string, span gren.Span, newText string) string {
	startOffset := OffsetForPoint(text, span.Start)
	endOffset := OffsetForPoint(text, span.End)

	if endOffset < startOffset {
		startOffset, endOffset = endOffset, startOffset
	}

	var b strings.Builder
	b.Grow(len(text) - (endOffset - startOffset) + len(newText))
	b.WriteString(text[:startOffset])
	b.WriteString(newText)
	b.WriteString(text[endOffset:])

	return b.String()
}
