package lsp

import (
	"sort"
	"strings"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
)

// applyEdits applies edits to text, returning the result. Edits must not
// overlap; they are applied in reverse position order so earlier offsets
// stay valid (spec.md §4.6.7 step 4).
func applyEdits(text string, edits []docstore.Edit) string {
	sorted := make([]docstore.Edit, len(edits))
	copy(sorted, edits)
	sortEditsDescending(sorted)

	lines := strings.Split(text, "\n")

	for _, e := range sorted {
		lines = spliceEdit(lines, e)
	}

	return strings.Join(lines, "\n")
}

// sortEditsDescending orders edits by start position, latest first, so
// applying them in order never invalidates a not-yet-applied edit's
// offsets.
func sortEditsDescending(edits []docstore.Edit) {
	sort.SliceStable(edits, func(i, j int) bool {
		a, b := edits[i].Range.Start, edits[j].Range.Start
		if a.Line != b.Line {
			return a.Line > b.Line
		}
		return a.Character > b.Character
	})
}

func spliceEdit(lines []string, e docstore.Edit) []string {
	start, end := e.Range.Start, e.Range.End

	if int(start.Line) >= len(lines) {
		return lines
	}

	startLine := []rune(lines[start.Line])
	endLineIdx := end.Line
	if int(endLineIdx) >= len(lines) {
		endLineIdx = uint32(len(lines) - 1)
	}
	endLine := []rune(lines[endLineIdx])

	startCol := clampCol(start.Character, len(startLine))
	endCol := clampCol(end.Character, len(endLine))

	before := string(startLine[:startCol])
	after := string(endLine[endCol:])
	replacement := before + e.NewText + after

	newLines := make([]string, 0, len(lines)-int(endLineIdx-start.Line))
	newLines = append(newLines, lines[:start.Line]...)
	newLines = append(newLines, strings.Split(replacement, "\n")...)
	newLines = append(newLines, lines[endLineIdx+1:]...)

	return newLines
}

func clampCol(col uint32, lineLen int) int {
	if int(col) > lineLen {
		return lineLen
	}
	return int(col)
}

// editsToWorkspaceEditMap sorts each file's edits in byURI in place into
// reverse position order and returns the same map (spec.md §4.6.7 step 4).
func editsToWorkspaceEditMap(byURI map[gren.URI][]docstore.Edit) map[gren.URI][]docstore.Edit {
	for uri, edits := range byURI {
		sortEditsDescending(edits)
		byURI[uri] = edits
	}
	return byURI
}
