package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// faviconService builds display-hint icon URLs. The icon is never fetched.
const faviconService = "https://www.google.com/s2/favicons?domain="

// Record is a saved bookmark.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Favicon     string    `json:"favicon"`
	Folder      string    `json:"folder,omitempty"` // set by tree import only
}

// Candidate is unvalidated input for a Record, from any ingress.
type Candidate struct {
	Title       *string    `json:"title"` // nil = absent, synthesized from URL
	URL         string     `json:"url"`
	Tags        []string   `json:"tags"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"createdAt"`
	Favicon     string     `json:"favicon"`
	Folder      string     `json:"folder"`
}

// NewCandidateParams holds parameters for building a Candidate by hand.
type NewCandidateParams struct {
	Title       string
	URL         string
	Tags        []string
	Description string
}

// NewCandidate builds a Candidate for a manual add.
// An empty Title is treated as absent.
func NewCandidate(params NewCandidateParams) Candidate {
	c := Candidate{
		URL:         params.URL,
		Tags:        params.Tags,
		Description: params.Description,
	}
	if params.Title != "" {
		title := params.Title
		c.Title = &title
	}
	return c
}

// Validate checks that a candidate can become a Record.
func Validate(c Candidate) error {
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return ErrEmptyTitle
	}
	if hostOf(c.URL) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, c.URL)
	}
	return nil
}

// Normalize validates a candidate and fills in defaults.
// The returned Record has no ID; callers assign one.
func Normalize(c Candidate, now time.Time) (Record, error) {
	if err := Validate(c); err != nil {
		return Record{}, err
	}

	r := Record{
		Title:       c.URL,
		URL:         c.URL,
		Tags:        NormalizeTags(c.Tags),
		Description: c.Description,
		CreatedAt:   now,
		Favicon:     c.Favicon,
		Folder:      c.Folder,
	}
	if c.Title != nil {
		r.Title = *c.Title
	}
	if c.CreatedAt != nil && !c.CreatedAt.IsZero() {
		r.CreatedAt = *c.CreatedAt
	}
	if r.Favicon == "" {
		r.Favicon = FaviconURL(c.URL)
	}
	return r, nil
}

// NormalizeTags trims tags and removes blanks and repeats, keeping first-seen order.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}

// FaviconURL derives the icon URL for a bookmark from its host.
// Returns "" if the URL has no host.
func FaviconURL(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ""
	}
	return faviconService + host
}

// HasTag reports whether the record carries the tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
