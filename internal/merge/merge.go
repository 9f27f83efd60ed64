// Package merge decides whether incoming bookmarks conflict with a collection
// and folds them in without duplicating URLs.
//
// Every function is a pure transform: the input collection is never mutated
// and a new collection is returned.
package merge

import (
	"strings"
	"time"

	"github.com/nikbrunner/quickmark/internal/model"
)

// Outcome is the result of adding a single candidate.
type Outcome int

const (
	Added            Outcome = iota // candidate became a new record
	DuplicateSkipped                // a record with the same URL already exists
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case DuplicateSkipped:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Stats summarizes a batch merge. Invalid is the part of Skipped that failed validation.
type Stats struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// AddOne adds a single candidate to the front of the collection.
// URLs are compared as exact strings. On a duplicate the collection is
// returned unchanged along with the existing record. When err is non-nil
// the collection is unchanged and the outcome carries no meaning.
func AddOne(c model.Collection, cand model.Candidate) (model.Collection, Outcome, model.Record, error) {
	if i := c.IndexOfURL(cand.URL); i != -1 {
		return c, DuplicateSkipped, c[i], nil
	}

	record, err := model.Normalize(cand, time.Now())
	if err != nil {
		return c, Added, model.Record{}, err
	}
	record.ID = model.GenerateID()

	out := make(model.Collection, 0, len(c)+1)
	out = append(out, record)
	out = append(out, c...)
	return out, Added, record, nil
}

// MergeMany appends candidates after the existing records in input order.
// A candidate is skipped when its URL is already in the collection or was
// merged earlier in the same batch, so the first occurrence wins. Invalid
// candidates are skipped without aborting the batch.
func MergeMany(c model.Collection, cands []model.Candidate) (model.Collection, Stats) {
	var stats Stats

	seen := make(map[string]bool, len(c)+len(cands))
	for _, r := range c {
		seen[r.URL] = true
	}

	out := make(model.Collection, len(c), len(c)+len(cands))
	copy(out, c)

	now := time.Now()
	for _, cand := range cands {
		if seen[cand.URL] {
			stats.Skipped++
			continue
		}

		record, err := model.Normalize(cand, now)
		if err != nil {
			stats.Skipped++
			stats.Invalid++
			continue
		}
		record.ID = model.GenerateID()

		seen[record.URL] = true
		out = append(out, record)
		stats.Added++
	}

	return out, stats
}

// RequireTitled keeps only candidates carrying a non-blank title and URL,
// as flat-file import demands. It returns the kept candidates and how many
// were dropped.
func RequireTitled(cands []model.Candidate) ([]model.Candidate, int) {
	kept := make([]model.Candidate, 0, len(cands))
	for _, cand := range cands {
		if cand.Title == nil || strings.TrimSpace(*cand.Title) == "" || strings.TrimSpace(cand.URL) == "" {
			continue
		}
		kept = append(kept, cand)
	}
	return kept, len(cands) - len(kept)
}
