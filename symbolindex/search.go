package symbolindex

import (
	"sort"
	"strings"
	"unicode"

	"github.com/grenlsp/gren-lsp"
)

// Search implements workspace/symbol's ranking contract (spec.md §4.4):
// exact case-insensitive matches first, then case-insensitive prefix
// matches ordered by name length ascending, then subsequence (fuzzy)
// matches ranked by score. An empty query returns the most recently added
// symbols up to limit.
func (idx *Index) Search(query string, limit int) ([]gren.Symbol, error) {
	if limit <= 0 {
		limit = gren.DefaultWorkspaceSymbolLimit
	}

	if query == "" {
		var rows []symbolRow
		if err := idx.db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
			return nil, &gren.IndexUnavailableError{Cause: err}
		}
		return toSymbols(rows), nil
	}

	var rows []symbolRow
	if err := idx.db.Find(&rows).Error; err != nil {
		return nil, &gren.IndexUnavailableError{Cause: err}
	}

	type scored struct {
		symbol gren.Symbol
		tier   int // 0 exact, 1 prefix, 2 fuzzy
		score  int
	}

	lowerQuery := strings.ToLower(query)
	var candidates []scored

	for _, row := range rows {
		name := row.Name
		lowerName := strings.ToLower(name)

		switch {
		case lowerName == lowerQuery:
			candidates = append(candidates, scored{symbol: rowToSymbol(row), tier: 0, score: 1000})
		case strings.HasPrefix(lowerName, lowerQuery):
			candidates = append(candidates, scored{symbol: rowToSymbol(row), tier: 1, score: -len(name)})
		default:
			if score, ok := fuzzyScore(name, query); ok {
				candidates = append(candidates, scored{symbol: rowToSymbol(row), tier: 2, score: score})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.tier == 1 {
			// prefix matches: shorter names first (score is -len already).
			if a.score != b.score {
				return a.score > b.score
			}
			return a.symbol.Name < b.symbol.Name
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.symbol.Name < b.symbol.Name
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	symbols := make([]gren.Symbol, 0, len(candidates))
	for _, c := range candidates {
		symbols = append(symbols, c.symbol)
	}

	return symbols, nil
}

// fuzzyScore reports whether query is a subsequence of name and, if so, a
// score combining: +10 per matched character with a growing bonus for
// consecutive runs, +15 per match landing on a word-boundary (an
// uppercase letter in the original name), +50 if the match is a prefix,
// and a small penalty for name length (spec.md §4.4).
func fuzzyScore(name, query string) (int, bool) {
	nameRunes := []rune(name)
	queryRunes := []rune(strings.ToLower(query))

	score := 0
	qi := 0
	run := 0
	matchedFirst := false

	for ni := 0; ni < len(nameRunes) && qi < len(queryRunes); ni++ {
		r := nameRunes[ni]
		if unicode.ToLower(r) != queryRunes[qi] {
			run = 0
			continue
		}

		if ni == 0 {
			matchedFirst = true
		}

		run++
		score += 10 + (run-1)*5

		if unicode.IsUpper(r) {
			score += 15
		}

		qi++
	}

	if qi < len(queryRunes) {
		return 0, false
	}

	if matchedFirst {
		score += 50
	}

	score -= len(nameRunes) / 4

	return score, true
}
