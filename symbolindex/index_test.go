package symbolindex

import (
	"testing"
	"time"

	"github.com/grenlsp/gren-lsp"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(":memory:", false)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func sampleSymbol(name string, kind gren.SymbolKind, uri gren.URI, container string) gren.Symbol {
	return gren.Symbol{
		Name:           name,
		Kind:           kind,
		URI:            uri,
		Range:          gren.Span{Start: gren.Point{Line: 0, Character: 0}, End: gren.Point{Line: 0, Character: len(name)}},
		SelectionRange: gren.Span{Start: gren.Point{Line: 0, Character: 0}, End: gren.Point{Line: 0, Character: len(name)}},
		Container:      container,
		CreatedAt:      time.Now(),
	}
}

func TestReindex_ByNameAndByPrefix(t *testing.T) {
	idx := newTestIndex(t)
	uri := gren.URI("file:///a.gren")

	symbols := []gren.Symbol{
		sampleSymbol("double", gren.SymbolKindFunction, uri, "Main"),
		sampleSymbol("doubleAll", gren.SymbolKindFunction, uri, "Main"),
	}
	if err := idx.Reindex(uri, symbols, nil, nil); err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}

	got, err := idx.ByName("double", 10)
	if err != nil {
		t.Fatalf("ByName() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "double" {
		t.Fatalf("ByName(%q) = %+v, want exactly one symbol named %q", "double", got, "double")
	}

	prefixed, err := idx.ByPrefix("double", 10)
	if err != nil {
		t.Fatalf("ByPrefix() error: %v", err)
	}
	if len(prefixed) != 2 {
		t.Fatalf("ByPrefix(%q) returned %d symbols, want 2", "double", len(prefixed))
	}
}

func TestReindex_ReplacesPriorSymbolsForURI(t *testing.T) {
	idx := newTestIndex(t)
	uri := gren.URI("file:///a.gren")

	_ = idx.Reindex(uri, []gren.Symbol{sampleSymbol("old", gren.SymbolKindFunction, uri, "Main")}, nil, nil)
	_ = idx.Reindex(uri, []gren.Symbol{sampleSymbol("new", gren.SymbolKindFunction, uri, "Main")}, nil, nil)

	if got, _ := idx.ByName("old", 10); len(got) != 0 {
		t.Errorf("expected %q to be gone after re-indexing the file, got %+v", "old", got)
	}
	if got, _ := idx.ByName("new", 10); len(got) != 1 {
		t.Errorf("expected %q to be present after re-indexing the file, got %+v", "new", got)
	}
}

func TestByURI_ReturnsOnlyThatFilesSymbols(t *testing.T) {
	idx := newTestIndex(t)
	uriA := gren.URI("file:///a.gren")
	uriB := gren.URI("file:///b.gren")

	_ = idx.Reindex(uriA, []gren.Symbol{sampleSymbol("fromA", gren.SymbolKindFunction, uriA, "A")}, nil, nil)
	_ = idx.Reindex(uriB, []gren.Symbol{sampleSymbol("fromB", gren.SymbolKindFunction, uriB, "B")}, nil, nil)

	got, err := idx.ByURI(uriA)
	if err != nil {
		t.Fatalf("ByURI() error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "fromA" {
		t.Fatalf("ByURI(uriA) = %+v, want exactly [fromA]", got)
	}
}

func TestByKind_FiltersAcrossFiles(t *testing.T) {
	idx := newTestIndex(t)
	uriA := gren.URI("file:///a.gren")
	uriB := gren.URI("file:///b.gren")

	_ = idx.Reindex(uriA, []gren.Symbol{
		sampleSymbol("Maybe", gren.SymbolKindType, uriA, "A"),
		sampleSymbol("double", gren.SymbolKindFunction, uriA, "A"),
	}, nil, nil)
	_ = idx.Reindex(uriB, []gren.Symbol{
		sampleSymbol("Result", gren.SymbolKindType, uriB, "B"),
	}, nil, nil)

	types, err := idx.ByKind(gren.SymbolKindType, 10)
	if err != nil {
		t.Fatalf("ByKind() error: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("ByKind(type) returned %d symbols, want 2", len(types))
	}
}

func TestByContainerAndName(t *testing.T) {
	idx := newTestIndex(t)
	uri := gren.URI("file:///a.gren")

	_ = idx.Reindex(uri, []gren.Symbol{
		sampleSymbol("map", gren.SymbolKindFunction, uri, "List"),
		sampleSymbol("map", gren.SymbolKindFunction, uri, "Dict"),
	}, nil, nil)

	got, err := idx.ByContainerAndName("Dict", "map")
	if err != nil {
		t.Fatalf("ByContainerAndName() error: %v", err)
	}
	if len(got) != 1 || got[0].Container != "Dict" {
		t.Fatalf("ByContainerAndName(Dict, map) = %+v, want container Dict", got)
	}
}

func TestReferencesTo(t *testing.T) {
	idx := newTestIndex(t)
	uri := gren.URI("file:///a.gren")

	refs := []gren.Reference{
		{SymbolName: "double", URI: uri, Range: gren.Span{Start: gren.Point{Line: 2, Character: 0}, End: gren.Point{Line: 2, Character: 6}}, Kind: gren.ReferenceKindDeclaration},
		{SymbolName: "double", URI: uri, Range: gren.Span{Start: gren.Point{Line: 5, Character: 4}, End: gren.Point{Line: 5, Character: 10}}, Kind: gren.ReferenceKindUsage},
	}
	if err := idx.Reindex(uri, nil, refs, nil); err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}

	got, err := idx.ReferencesTo("double")
	if err != nil {
		t.Fatalf("ReferencesTo() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReferencesTo(double) returned %d references, want 2", len(got))
	}
}

func TestImportsOfAndFilesImportingModule(t *testing.T) {
	idx := newTestIndex(t)
	uriMain := gren.URI("file:///Main.gren")
	uriUtil := gren.URI("file:///Util.gren")

	imports := []gren.ImportRecord{
		{SourceURI: uriMain, Module: "Util", Exposed: []string{"triple"}},
	}
	if err := idx.Reindex(uriMain, nil, nil, imports); err != nil {
		t.Fatalf("Reindex() error: %v", err)
	}

	got, err := idx.ImportsOf(uriMain)
	if err != nil {
		t.Fatalf("ImportsOf() error: %v", err)
	}
	if len(got) != 1 || got[0].Module != "Util" {
		t.Fatalf("ImportsOf(Main) = %+v, want one import of Util", got)
	}

	files, err := idx.FilesImportingModule("Util")
	if err != nil {
		t.Fatalf("FilesImportingModule() error: %v", err)
	}
	if len(files) != 1 || files[0] != uriMain {
		t.Fatalf("FilesImportingModule(Util) = %+v, want [%q]", files, uriMain)
	}

	if files, _ := idx.FilesImportingModule("Nonexistent"); len(files) != 0 {
		t.Errorf("FilesImportingModule(Nonexistent) = %+v, want empty", files)
	}
	_ = uriUtil
}

func TestStats_CountsAcrossTables(t *testing.T) {
	idx := newTestIndex(t)
	uri := gren.URI("file:///a.gren")

	_ = idx.Reindex(uri,
		[]gren.Symbol{sampleSymbol("double", gren.SymbolKindFunction, uri, "Main")},
		[]gren.Reference{{SymbolName: "double", URI: uri, Range: gren.Span{}, Kind: gren.ReferenceKindUsage}},
		[]gren.ImportRecord{{SourceURI: uri, Module: "Util"}},
	)

	stats, err := idx.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.Symbols != 1 || stats.Files != 1 || stats.Imports != 1 || stats.References != 1 {
		t.Errorf("Stats() = %+v, want 1 of each", stats)
	}
}
