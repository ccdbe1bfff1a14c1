package symbolindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grenlsp/gren-lsp"
)

// Index is the durable Symbol Index. Re-indexing different URIs may
// proceed concurrently; re-indexing the same URI serializes through a
// per-URI mutex so the last write by arrival order wins (spec.md §4.4).
type Index struct {
	db *gorm.DB

	uriLocksMu sync.Mutex
	uriLocks   map[gren.URI]*sync.Mutex
}

// Open connects to (and if necessary creates and migrates) the sqlite
// database at path, rebuilding it from scratch when the stored schema
// version doesn't match (spec.md §6).
func Open(path string, debug bool) (*Index, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("symbolindex: create cache dir: %w", err)
		}
	}

	cfg := &gorm.Config{}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Exec("PRAGMA foreign_keys = ON")
		sqlDB.Exec("PRAGMA journal_mode = WAL")
	}

	idx := &Index{db: db, uriLocks: make(map[gren.URI]*sync.Mutex)}

	if err := idx.ensureSchema(path); err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *Index) ensureSchema(path string) error {
	var current schemaVersionRow
	err := idx.db.First(&current).Error

	needsRebuild := err != nil || current.Version != schemaVersion

	if needsRebuild && err == nil && path != ":memory:" {
		sqlDB, _ := idx.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}

		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("symbolindex: remove stale db: %w", rmErr)
		}

		fresh, openErr := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if openErr != nil {
			return &gren.IndexUnavailableError{Cause: openErr}
		}
		idx.db = fresh
	}

	if err := idx.db.AutoMigrate(&symbolRow{}, &referenceRow{}, &importRow{}, &schemaVersionRow{}); err != nil {
		return &gren.IndexUnavailableError{Cause: err}
	}

	if needsRebuild {
		idx.db.Where("1 = 1").Delete(&schemaVersionRow{})
		idx.db.Create(&schemaVersionRow{Version: schemaVersion})
	}

	return nil
}

func (idx *Index) lockFor(uri gren.URI) *sync.Mutex {
	idx.uriLocksMu.Lock()
	defer idx.uriLocksMu.Unlock()

	m, ok := idx.uriLocks[uri]
	if !ok {
		m = &sync.Mutex{}
		idx.uriLocks[uri] = m
	}

	return m
}

func marshalSpan(s gren.Span) datatypes.JSON {
	data, _ := json.Marshal(spanJSON{
		Start: pointJSON{Line: s.Start.Line, Character: s.Start.Character},
		End:   pointJSON{Line: s.End.Line, Character: s.End.Character},
	})
	return datatypes.JSON(data)
}

func unmarshalSpan(data datatypes.JSON) gren.Span {
	var s spanJSON
	_ = json.Unmarshal(data, &s)

	return gren.Span{
		Start: gren.Point{Line: s.Start.Line, Character: s.Start.Character},
		End:   gren.Point{Line: s.End.Line, Character: s.End.Character},
	}
}

// Reindex replaces every symbol, reference, and import record for uri in a
// single transaction (spec.md §4.4 write contract).
func (idx *Index) Reindex(uri gren.URI, symbols []gren.Symbol, references []gren.Reference, imports []gren.ImportRecord) error {
	lock := idx.lockFor(uri)
	lock.Lock()
	defer lock.Unlock()

	return idx.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uri = ?", string(uri)).Delete(&symbolRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("uri = ?", string(uri)).Delete(&referenceRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("source_uri = ?", string(uri)).Delete(&importRow{}).Error; err != nil {
			return err
		}

		for _, s := range symbols {
			row := symbolRow{
				Name:           s.Name,
				Kind:           string(s.Kind),
				URI:            string(s.URI),
				Container:      s.Container,
				Signature:      s.Signature,
				Doc:            s.Doc,
				SelectionRange: marshalSpan(s.SelectionRange),
				FullRange:      marshalSpan(s.Range),
				CreatedAt:      timeOrNow(s.CreatedAt),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, r := range references {
			row := referenceRow{
				SymbolName: r.SymbolName,
				URI:        string(r.URI),
				Kind:       string(r.Kind),
				Range:      marshalSpan(r.Range),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, im := range imports {
			exposedJSON, _ := json.Marshal(im.Exposed)
			row := importRow{
				SourceURI:   string(im.SourceURI),
				Module:      im.Module,
				Alias:       im.Alias,
				ExposingAll: im.ExposeAll,
				ExposedJSON: datatypes.JSON(exposedJSON),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func rowToSymbol(r symbolRow) gren.Symbol {
	return gren.Symbol{
		Name:           r.Name,
		Kind:           gren.SymbolKind(r.Kind),
		URI:            gren.URI(r.URI),
		Range:          unmarshalSpan(r.FullRange),
		SelectionRange: unmarshalSpan(r.SelectionRange),
		Container:      r.Container,
		Signature:      r.Signature,
		Doc:            r.Doc,
		CreatedAt:      r.CreatedAt,
	}
}

func rowToReference(r referenceRow) gren.Reference {
	return gren.Reference{
		SymbolName: r.SymbolName,
		URI:        gren.URI(r.URI),
		Range:      unmarshalSpan(r.Range),
		Kind:       gren.ReferenceKind(r.Kind),
	}
}

func rowToImport(r importRow) gren.ImportRecord {
	var exposed []string
	_ = json.Unmarshal(r.ExposedJSON, &exposed)

	return gren.ImportRecord{
		SourceURI: gren.URI(r.SourceURI),
		Module:    r.Module,
		Alias:     r.Alias,
		Exposed:   exposed,
		ExposeAll: r.ExposingAll,
	}
}

// ByName performs an exact-name point lookup, bounded by limit.
func (idx *Index) ByName(name string, limit int) ([]gren.Symbol, error) {
	var rows []symbolRow
	q := idx.db.Where("name = ?", name)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	return toSymbols(rows), nil
}

// ByPrefix performs a case-sensitive prefix lookup by name, for
// completion.
func (idx *Index) ByPrefix(prefix string, limit int) ([]gren.Symbol, error) {
	var rows []symbolRow
	// SQLite's LIKE ignores ASCII case, so compare the leading substring.
	q := idx.db.Where("substr(name, 1, length(?)) = ?", prefix, prefix)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	return toSymbols(rows), nil
}

// ByURI returns every symbol declared in uri.
func (idx *Index) ByURI(uri gren.URI) ([]gren.Symbol, error) {
	var rows []symbolRow
	if err := idx.db.Where("uri = ?", string(uri)).Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	return toSymbols(rows), nil
}

// ByKind returns every symbol of the given kind, bounded by limit.
func (idx *Index) ByKind(kind gren.SymbolKind, limit int) ([]gren.Symbol, error) {
	var rows []symbolRow
	q := idx.db.Where("kind = ?", string(kind))
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	return toSymbols(rows), nil
}

// ByContainerAndName resolves module-qualified access: symbols whose
// container matches module and whose name matches exactly.
func (idx *Index) ByContainerAndName(container, name string) ([]gren.Symbol, error) {
	var rows []symbolRow
	if err := idx.db.Where("container = ? AND name = ?", container, name).Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	return toSymbols(rows), nil
}

// ReferencesTo returns every reference to name workspace-wide.
func (idx *Index) ReferencesTo(name string) ([]gren.Reference, error) {
	var rows []referenceRow
	if err := idx.db.Where("symbol_name = ?", name).Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	refs := make([]gren.Reference, 0, len(rows))
	for _, r := range rows {
		refs = append(refs, rowToReference(r))
	}

	return refs, nil
}

// ImportsOf returns the import records declared by uri.
func (idx *Index) ImportsOf(uri gren.URI) ([]gren.ImportRecord, error) {
	var rows []importRow
	if err := idx.db.Where("source_uri = ?", string(uri)).Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	imports := make([]gren.ImportRecord, 0, len(rows))
	for _, r := range rows {
		imports = append(imports, rowToImport(r))
	}

	return imports, nil
}

// FilesImportingModule returns the distinct URIs of every file with an
// import clause naming module, used by the module-rename workflow to find
// the files that need their imports rewritten (spec.md §4.7
// plan_rename_module).
func (idx *Index) FilesImportingModule(module string) ([]gren.URI, error) {
	var rows []importRow
	if err := idx.db.Where("module = ?", module).Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	seen := make(map[gren.URI]struct{}, len(rows))
	var uris []gren.URI
	for _, r := range rows {
		uri := gren.URI(r.SourceURI)
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		uris = append(uris, uri)
	}

	return uris, nil
}

// Stats reports workspace-wide counts.
type Stats struct {
	Symbols    int64
	Files      int64
	Imports    int64
	References int64
}

// Stats returns counts of symbols, files, imports, references.
func (idx *Index) Stats() (Stats, error) {
	var s Stats

	if err := idx.db.Model(&symbolRow{}).Count(&s.Symbols).Error; err != nil {
		return s, &gren.IndexUnavailableError{Cause: err}
	}
	if err := idx.db.Model(&symbolRow{}).Distinct("uri").Count(&s.Files).Error; err != nil {
		return s, &gren.IndexUnavailableError{Cause: err}
	}
	if err := idx.db.Model(&importRow{}).Count(&s.Imports).Error; err != nil {
		return s, &gren.IndexUnavailableError{Cause: err}
	}
	if err := idx.db.Model(&referenceRow{}).Count(&s.References).Error; err != nil {
		return s, &gren.IndexUnavailableError{Cause: err}
	}

	return s, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	sqlDB, err := idx.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toSymbols(rows []symbolRow) []gren.Symbol {
	symbols := make([]gren.Symbol, 0, len(rows))
	for _, r := range rows {
		symbols = append(symbols, rowToSymbol(r))
	}
	return symbols
}

func escapeLike(s string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(s)
}
