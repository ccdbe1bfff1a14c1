// Package compiler talks to the external gren compiler binary: a liveness
// probe, a timeout-bounded `gren make --report=json` invocation per
// document, and decoding of its two-shaped JSON report into diagnostics
// (spec.md §6, §4.6 diagnostics path). No pack JSON library is wired into
// any other in-scope component, so this package's report decoding is the
// one place stdlib encoding/json is used rather than a third-party
// alternative — see DESIGN.md.
package compiler

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity mirrors the compiler's diagnostic severities; gren's compiler
// only ever reports errors today, but the shape leaves room for warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Position is a 1-based line/column pair as the compiler reports it.
type Position struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
}

// Region is a start/end position pair as the compiler reports it.
type Region struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Diagnostic is one problem tied to a specific file and region.
type Diagnostic struct {
	Severity Severity
	Path     string
	Title    string
	Message  string
	Region   Region
}

// GlobalError is a problem not tied to any specific file location (e.g. a
// compiler-version mismatch against gren.json).
type GlobalError struct {
	Severity Severity
	Path     string
	Title    string
	Message  string
}

// Report is the decoded result of one compiler invocation.
type Report struct {
	Diagnostics  []Diagnostic
	GlobalErrors []GlobalError
}

// reportMessage is either a plain string or an array mixing plain strings
// and styled {string, color, bold, underline} records (spec.md §6).
// Consumers concatenate every string field.
type reportMessage struct {
	text string
}

func (m *reportMessage) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		m.text = asString
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("compiler: message neither string nor array: %w", err)
	}

	var b strings.Builder
	for _, part := range parts {
		var asString string
		if err := json.Unmarshal(part, &asString); err == nil {
			b.WriteString(asString)
			continue
		}

		var styled struct {
			String string `json:"string"`
		}
		if err := json.Unmarshal(part, &styled); err == nil {
			b.WriteString(styled.String)
		}
	}

	m.text = b.String()

	return nil
}

type rawProblem struct {
	Title   string         `json:"title"`
	Region  Region         `json:"region"`
	Message reportMessage  `json:"message"`
}

type rawFileError struct {
	Path     string       `json:"path"`
	Name     string       `json:"name"`
	Problems []rawProblem `json:"problems"`
}

type rawOutput struct {
	Type    string         `json:"type"`
	Errors  []rawFileError `json:"errors,omitempty"`
	Path    string         `json:"path,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message reportMessage  `json:"message,omitempty"`
}

// ParseReport decodes the compiler's stderr JSON output into a Report.
// Empty output decodes to an empty, successful Report. Output that isn't
// valid JSON becomes a single GlobalError carrying the raw text, so a
// compiler crash is still visible rather than silently dropped. Valid JSON
// whose "type" is neither "compile-errors" nor "error" decodes to an empty
// Report.
func ParseReport(output string) (Report, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return Report{}, nil
	}

	var raw rawOutput
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return Report{
			GlobalErrors: []GlobalError{{
				Severity: SeverityError,
				Title:    "compiler output",
				Message:  trimmed,
			}},
		}, nil
	}

	var report Report

	switch raw.Type {
	case "compile-errors":
		for _, fileErr := range raw.Errors {
			for _, problem := range fileErr.Problems {
				report.Diagnostics = append(report.Diagnostics, Diagnostic{
					Severity: SeverityError,
					Path:     fileErr.Path,
					Title:    problem.Title,
					Message:  problem.Message.text,
					Region:   problem.Region,
				})
			}
		}
	case "error":
		report.GlobalErrors = append(report.GlobalErrors, GlobalError{
			Severity: SeverityError,
			Path:     raw.Path,
			Title:    raw.Title,
			Message:  raw.Message.text,
		})
	default:
		// Unknown report shape; treat as clean rather than guessing.
	}

	return report, nil
}
