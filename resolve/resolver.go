// Package resolve implements name resolution across local declarations,
// imports, and qualified access (spec.md §4.5).
package resolve

import (
	"strings"

	"github.com/grenlsp/gren-lsp"
	"github.com/grenlsp/gren-lsp/symbolindex"
)

// Resolver answers visibility queries against the Symbol Index. It holds
// no per-request state; every call takes its inputs explicitly
// (spec.md §9, "Coroutine flow").
type Resolver struct {
	index *symbolindex.Index
}

// New creates a Resolver backed by index.
func New(index *symbolindex.Index) *Resolver {
	return &Resolver{index: index}
}

// Resolve returns the symbols visible for name in fileURI, per spec.md
// §4.5 rules 1-3.
func (r *Resolver) Resolve(fileURI gren.URI, name string) ([]gren.Symbol, error) {
	var results []gren.Symbol

	local, err := r.index.ByName(name, 0)
	if err != nil {
		return nil, err
	}
	for _, s := range local {
		if s.URI == fileURI {
			results = append(results, s)
		}
	}

	if module, base, ok := splitQualified(name); ok {
		imports, err := r.index.ImportsOf(fileURI)
		if err != nil {
			return nil, err
		}

		for _, im := range imports {
			target := im.Module
			if im.Alias != "" && im.Alias == module {
				target = im.Module
			} else if im.Alias == "" && im.Module != module {
				continue
			} else if im.Alias != "" && im.Alias != module {
				continue
			}

			qualified, err := r.index.ByContainerAndName(target, base)
			if err != nil {
				return nil, err
			}
			results = appendUnique(results, qualified...)
		}

		return results, nil
	}

	imports, err := r.index.ImportsOf(fileURI)
	if err != nil {
		return nil, err
	}

	for _, im := range imports {
		if im.ExposeAll {
			moduleSymbols, err := r.index.ByContainerAndName(im.Module, name)
			if err != nil {
				return nil, err
			}
			results = appendUnique(results, moduleSymbols...)
			continue
		}

		if im.Exposes(name) {
			moduleSymbols, err := r.index.ByContainerAndName(im.Module, name)
			if err != nil {
				return nil, err
			}
			results = appendUnique(results, moduleSymbols...)
		}
	}

	return results, nil
}

// CompletionVisible returns symbols visible per Resolve's rules whose name
// starts with prefix, up to limit.
func (r *Resolver) CompletionVisible(fileURI gren.URI, prefix string, limit int) ([]gren.Symbol, error) {
	local, err := r.index.ByURI(fileURI)
	if err != nil {
		return nil, err
	}

	var results []gren.Symbol
	for _, s := range local {
		if strings.HasPrefix(s.Name, prefix) {
			results = append(results, s)
		}
	}

	imports, err := r.index.ImportsOf(fileURI)
	if err != nil {
		return nil, err
	}

	byPrefix, err := r.index.ByPrefix(prefix, 0)
	if err != nil {
		return nil, err
	}

	for _, im := range imports {
		for _, s := range byPrefix {
			if s.Container != im.Module {
				continue
			}
			if im.ExposeAll || im.Exposes(s.Name) {
				results = appendUnique(results, s)
			}
		}
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// AvailableUnimported returns workspace symbols matching prefix whose
// modules are not yet usable in fileURI (spec.md §4.5), for auto-import
// completion.
func (r *Resolver) AvailableUnimported(fileURI gren.URI, prefix string, limit int) ([]gren.Symbol, error) {
	imports, err := r.index.ImportsOf(fileURI)
	if err != nil {
		return nil, err
	}

	usable := make(map[string]bool, len(imports))
	for _, im := range imports {
		usable[im.Module] = true
	}

	candidates, err := r.index.ByPrefix(prefix, 0)
	if err != nil {
		return nil, err
	}

	var results []gren.Symbol
	for _, s := range candidates {
		if s.URI == fileURI {
			continue
		}
		if s.Container == "" || usable[s.Container] {
			continue
		}
		results = append(results, s)
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

func splitQualified(name string) (module, base string, ok bool) {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}

	module = name[:i]
	base = name[i+1:]

	if !gren.IsTypeName(module) {
		return "", "", false
	}

	return module, base, true
}

func appendUnique(results []gren.Symbol, more ...gren.Symbol) []gren.Symbol {
	for _, m := range more {
		dup := false
		for _, r := range results {
			if r.URI == m.URI && r.Name == m.Name && r.SelectionRange == m.SelectionRange {
				dup = true
				break
			}
		}
		if !dup {
			results = append(results, m)
		}
	}
	return results
}
