package search

import (
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/sahilm/fuzzy"
)

// Result represents a fuzzy search match.
type Result struct {
	Record         model.Record
	MatchedIndexes []int
	Score          int
}

// recordTitles implements fuzzy.Source for a collection.
type recordTitles model.Collection

func (rt recordTitles) String(i int) string {
	return rt[i].Title
}

func (rt recordTitles) Len() int {
	return len(rt)
}

// Fuzzy searches all records by title using fuzzy matching.
// Returns results sorted by match score (best first).
func Fuzzy(c model.Collection, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, recordTitles(c))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Record:         c[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
