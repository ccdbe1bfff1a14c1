// Package symbolindex implements the Symbol Index: a durable, ACID store
// for symbols, references, and import records, backed by an embedded
// sqlite database via gorm (spec.md §4.4).
package symbolindex

import (
	"time"

	"gorm.io/datatypes"
)

// schemaVersion is bumped whenever the logical schema changes shape in a
// way existing rows can't be migrated into; on mismatch the database file
// is rebuilt from source (spec.md §6, "Persisted state").
const schemaVersion = 1

// symbolRow is the gorm model backing symbols(name, kind, uri,
// selection_range, full_range, container, signature, doc, created_at).
type symbolRow struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(255);index"`
	Kind      string `gorm:"type:varchar(32);index"`
	URI       string `gorm:"type:text;index"`
	Container string `gorm:"type:varchar(255);index"`
	Signature string `gorm:"type:text"`
	Doc       string `gorm:"type:text"`

	SelectionRange datatypes.JSON `gorm:"type:jsonb"`
	FullRange      datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (symbolRow) TableName() string { return "symbols" }

// referenceRow backs references(symbol_name, uri, range, kind).
type referenceRow struct {
	ID         uint   `gorm:"primaryKey"`
	SymbolName string `gorm:"type:varchar(255);index"`
	URI        string `gorm:"type:text;index"`
	Kind       string `gorm:"type:varchar(32)"`

	Range datatypes.JSON `gorm:"type:jsonb"`
}

func (referenceRow) TableName() string { return "references" }

// importRow backs imports(source_uri, module, exposed_json, alias,
// exposing_all).
type importRow struct {
	ID          uint   `gorm:"primaryKey"`
	SourceURI   string `gorm:"type:text;index"`
	Module      string `gorm:"type:varchar(255);index"`
	Alias       string `gorm:"type:varchar(255)"`
	ExposingAll bool

	ExposedJSON datatypes.JSON `gorm:"type:jsonb"`
}

func (importRow) TableName() string { return "imports" }

// schemaVersionRow tracks the on-disk schema version for rebuild-on-
// mismatch (spec.md §6).
type schemaVersionRow struct {
	ID      uint `gorm:"primaryKey"`
	Version int
}

func (schemaVersionRow) TableName() string { return "schema_version" }

type pointJSON struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

type spanJSON struct {
	Start pointJSON `json:"start"`
	End   pointJSON `json:"end"`
}
