// Package tags aggregates and edits tags across a collection.
package tags

import (
	"sort"

	"github.com/nikbrunner/quickmark/internal/model"
)

// Count is a tag with the number of records carrying it.
type Count struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Frequencies counts tags across all records, most used first.
// Ties keep first-seen order: collection order, then tag order within a record.
func Frequencies(c model.Collection) []Count {
	index := make(map[string]int)
	var counts []Count

	for _, r := range c {
		for _, tag := range r.Tags {
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, Count{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// Distinct returns the number of different tags in the collection.
func Distinct(c model.Collection) int {
	seen := make(map[string]bool)
	for _, r := range c {
		for _, tag := range r.Tags {
			seen[tag] = true
		}
	}
	return len(seen)
}

// Delete removes tag from every record. Records are never removed, even
// when left without tags.
func Delete(c model.Collection, tag string) model.Collection {
	return Rename(c, tag, "")
}

// Rename replaces from with to on every record carrying it. A record that
// already has to keeps a single copy. An empty to deletes the tag.
func Rename(c model.Collection, from, to string) model.Collection {
	out := make(model.Collection, len(c))
	for i, r := range c {
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			if t == from {
				t = to
			}
			if t == "" || contains(tags, t) {
				continue
			}
			tags = append(tags, t)
		}
		r.Tags = tags
		out[i] = r
	}
	return out
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
