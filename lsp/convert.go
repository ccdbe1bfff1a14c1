package lsp

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
)

// positionToPoint converts an LSP position to the domain's Point type.
// Both are zero-based line/UTF-16-code-unit pairs.
func positionToPoint(p protocol.Position) gren.Point {
	return gren.Point{Line: p.Line, Character: p.Character}
}

func pointToPosition(p gren.Point) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}

func spanToRange(s gren.Span) protocol.Range {
	return protocol.Range{Start: pointToPosition(s.Start), End: pointToPosition(s.End)}
}

func rangeToSpan(r protocol.Range) gren.Span {
	return gren.Span{Start: positionToPoint(r.Start), End: positionToPoint(r.End)}
}

func editToTextEdit(e docstore.Edit) protocol.TextEdit {
	return protocol.TextEdit{Range: spanToRange(e.Range), NewText: e.NewText}
}

// lineAt returns the text of line n (zero-based) within text, or "" when
// out of range.
func lineAt(text string, line uint32) string {
	lines := strings.Split(text, "\n")
	if int(line) >= len(lines) {
		return ""
	}
	return lines[line]
}

// prefixAt returns the text of pos's line up to (not including) its
// character offset. gren identifiers, keywords, and punctuation relevant
// to completion classification are all ASCII, so treating Character as a
// rune index is exact here.
func prefixAt(text string, pos protocol.Position) string {
	line := []rune(lineAt(text, pos.Line))
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return string(line[:col])
}
