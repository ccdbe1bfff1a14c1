// Package rewrite computes text edits for import-statement changes: adding
// a new import, extending an exposing list, or rewriting every reference to
// a renamed module (spec.md §4.7). It works directly on document text
// rather than re-parsing a CST, matching the original's approach of emitting line-anchored edits
// (original_source/lsp-server/src/import_rewriter.go, import_manager.rs).
package rewrite

import (
	"regexp"
	"sort"
	"strings"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
)

// Action identifies which of the three outcomes a Plan produced.
type Action string

const (
	ActionAddNew         Action = "add_new"
	ActionExtendExposing Action = "extend_exposing"
	ActionUseExisting    Action = "use_existing"
)

// Variant is the completion import style requested: a bare exposed name, or
// a module-qualified reference.
type Variant string

const (
	VariantExposed   Variant = "exposed"
	VariantQualified Variant = "qualified"
)

// ImportPlan is the result of Plan: what happened, and the edits (if any)
// needed to make it so.
type ImportPlan struct {
	Action Action
	Edits  []docstore.Edit
}

var (
	moduleDeclRe = regexp.MustCompile(`^(\s*module\s+)([A-Z][A-Za-z0-9_.]*)`)
	importLineRe = regexp.MustCompile(`^import\s+([A-Z][A-Za-z0-9_.]*)(\s+as\s+[A-Za-z0-9_]+)?(\s+exposing\s+\(([^)]*)\))?`)
)

// Plan computes the edits required to make targetSymbol of targetModule
// accessible in fileText in the given variant (spec.md §4.7). Existing
// imports are read from fileText's import lines; existingImports is not
// consulted.
func Plan(fileText string, existingImports []gren.ImportRecord, targetModule, targetSymbol string, variant Variant) ImportPlan {
	lines := strings.Split(fileText, "\n")

	existing, lineIdx := findImportLine(lines, targetModule)

	if variant == VariantQualified {
		if existing != nil {
			return ImportPlan{Action: ActionUseExisting}
		}
		return ImportPlan{Action: ActionAddNew, Edits: []docstore.Edit{addNewEdit(lines, targetModule, "")}}
	}

	// VariantExposed
	if existing == nil {
		return ImportPlan{
			Action: ActionAddNew,
			Edits:  []docstore.Edit{addNewEdit(lines, targetModule, targetSymbol)},
		}
	}

	if existing.ExposeAll || existing.Exposes(targetSymbol) {
		return ImportPlan{Action: ActionUseExisting}
	}

	merged := mergeExposed(existing.Exposed, targetSymbol)
	newLine := rebuildImportLine(lines[lineIdx], targetModule, merged)

	return ImportPlan{
		Action: ActionExtendExposing,
		Edits: []docstore.Edit{{
			Range:   wholeLineSpan(lineIdx, lines[lineIdx]),
			NewText: newLine,
		}},
	}
}

// findImportLine parses lines for an import of targetModule and returns
// the ImportRecord built from that line plus its 0-based index, or
// (nil, -1) when no line imports targetModule.
func findImportLine(lines []string, targetModule string) (*gren.ImportRecord, int) {
	for i, line := range lines {
		m := importLineRe.FindStringSubmatch(strings.TrimLeft(line, " \t"))
		if m == nil || m[1] != targetModule {
			continue
		}

		rec := gren.ImportRecord{Module: targetModule}
		if m[2] != "" {
			rec.Alias = strings.TrimSpace(strings.TrimPrefix(m[2], " as "))
		}
		if m[3] != "" {
			exposed := strings.Split(m[4], ",")
			for _, e := range exposed {
				e = strings.TrimSpace(e)
				if e == ".." {
					rec.ExposeAll = true
					continue
				}
				if e != "" {
					rec.Exposed = append(rec.Exposed, e)
				}
			}
		}

		return &rec, i
	}

	return nil, -1
}

// addNewEdit inserts a new import line immediately after the last existing
// import, or after the module declaration if the file has none (spec.md
// §4.7 AddNew). An empty symbol produces a bare qualifying import.
func addNewEdit(lines []string, targetModule, symbol string) docstore.Edit {
	insertAfter := lastImportLine(lines)
	if insertAfter < 0 {
		insertAfter = moduleDeclLine(lines)
	}

	text := "import " + targetModule
	if symbol != "" {
		text += " exposing (" + symbol + ")"
	}
	text += "\n"

	insertLine := uint32(insertAfter + 1)

	return docstore.Edit{
		Range:   gren.Span{Start: gren.Point{Line: insertLine}, End: gren.Point{Line: insertLine}},
		NewText: text,
	}
}

func lastImportLine(lines []string) int {
	last := -1
	for i, line := range lines {
		if importLineRe.MatchString(strings.TrimLeft(line, " \t")) {
			last = i
		}
	}
	return last
}

func moduleDeclLine(lines []string) int {
	for i, line := range lines {
		if moduleDeclRe.MatchString(line) {
			return i
		}
	}
	return -1
}

// mergeExposed returns the lexicographically sorted, deduplicated union of
// exposed and symbol (spec.md §4.7 ExtendExposing).
func mergeExposed(exposed []string, symbol string) []string {
	set := make(map[string]struct{}, len(exposed)+1)
	for _, e := range exposed {
		set[e] = struct{}{}
	}
	set[symbol] = struct{}{}

	merged := make([]string, 0, len(set))
	for name := range set {
		merged = append(merged, name)
	}
	sort.Strings(merged)

	return merged
}

// rebuildImportLine replaces line's exposing list (adding one if absent)
// with exposed, preserving the module name and any alias clause.
func rebuildImportLine(line, targetModule string, exposed []string) string {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]

	m := importLineRe.FindStringSubmatch(trimmed)
	if m == nil {
		return line
	}

	head := "import " + targetModule
	if m[2] != "" {
		head += m[2]
	}

	return indent + head + " exposing (" + strings.Join(exposed, ", ") + ")"
}

func wholeLineSpan(lineIdx int, line string) gren.Span {
	return gren.Span{
		Start: gren.Point{Line: uint32(lineIdx), Character: 0},
		End:   gren.Point{Line: uint32(lineIdx), Character: uint32(len([]rune(line)))},
	}
}
