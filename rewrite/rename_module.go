package rewrite

import (
	"regexp"
	"strings"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/docstore"
)

// RenameModuleFile is one workspace file's text and its already-indexed
// imports, as fed to PlanRenameModule.
type RenameModuleFile struct {
	URI     gren.URI
	Text    string
	Imports []gren.ImportRecord
}

// PlanRenameModule walks renamedFile's own module declaration and every
// file's import clauses, emitting per-file text edits that replace
// references to oldName with newName while preserving alias and exposing
// clauses (spec.md §4.7 plan_rename_module, grounded on
// original_source/lsp-server/src/module_rename.rs's
// prepare_rename_edits/find_affected_files).
func PlanRenameModule(oldName, newName string, renamedFile RenameModuleFile, otherFiles []RenameModuleFile) map[gren.URI][]docstore.Edit {
	edits := make(map[gren.URI][]docstore.Edit)

	if declEdit, ok := moduleDeclarationEdit(renamedFile.Text, oldName, newName); ok {
		edits[renamedFile.URI] = append(edits[renamedFile.URI], declEdit)
	}

	for _, f := range otherFiles {
		if !importsModule(f.Imports, oldName) {
			continue
		}

		fileEdits := importReferenceEdits(f.Text, oldName, newName)
		if len(fileEdits) > 0 {
			edits[f.URI] = append(edits[f.URI], fileEdits...)
		}
	}

	return edits
}

func importsModule(imports []gren.ImportRecord, module string) bool {
	for _, im := range imports {
		if im.Module == module {
			return true
		}
	}
	return false
}

// moduleDeclarationEdit replaces the module name in a file's leading
// `module Old exposing (...)` declaration, leaving the exposing clause
// untouched.
func moduleDeclarationEdit(text, oldName, newName string) (docstore.Edit, bool) {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		m := moduleDeclRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		nameStart, nameEnd := m[4], m[5]
		if line[nameStart:nameEnd] != oldName {
			continue
		}

		return docstore.Edit{
			Range: gren.Span{
				Start: gren.Point{Line: uint32(i), Character: uint32(len([]rune(line[:nameStart])))},
				End:   gren.Point{Line: uint32(i), Character: uint32(len([]rune(line[:nameEnd])))},
			},
			NewText: newName,
		}, true
	}

	return docstore.Edit{}, false
}

var importModuleNameRe = regexp.MustCompile(`^(\s*import\s+)([A-Z][A-Za-z0-9_.]*)`)

// importReferenceEdits replaces every `import Old ...` module-name
// occurrence in text with newName, preserving any alias/exposing suffix on
// the line.
func importReferenceEdits(text, oldName, newName string) []docstore.Edit {
	lines := strings.Split(text, "\n")

	var edits []docstore.Edit
	for i, line := range lines {
		m := importModuleNameRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		nameStart, nameEnd := m[4], m[5]
		if line[nameStart:nameEnd] != oldName {
			continue
		}

		edits = append(edits, docstore.Edit{
			Range: gren.Span{
				Start: gren.Point{Line: uint32(i), Character: uint32(len([]rune(line[:nameStart])))},
				End:   gren.Point{Line: uint32(i), Character: uint32(len([]rune(line[:nameEnd])))},
			},
			NewText: newName,
		})
	}

	return edits
}
