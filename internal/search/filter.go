package search

import (
	"html"
	"regexp"
	"strings"

	"github.com/nikbrunner/quickmark/internal/model"
)

const (
	highlightOpen  = `<span class="highlight">`
	highlightClose = `</span>`
)

// Filter returns the records whose title or URL contains query, ignoring
// case. An empty query matches everything. Collection order is kept.
func Filter(c model.Collection, query string) model.Collection {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append(model.Collection{}, c...)
	}

	result := model.Collection{}
	for _, r := range c {
		if Matches(r, q) {
			result = append(result, r)
		}
	}
	return result
}

// Matches reports whether a lower-cased, trimmed query hits the record.
func Matches(r model.Record, q string) bool {
	return strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.URL), q)
}

// Highlight escapes text for HTML and wraps every case-insensitive match of
// query in a highlight span. The query is quoted before being compiled, and
// matches are found on the raw text so escaping cannot split them.
func Highlight(text, query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return html.EscapeString(text)
	}

	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(q))

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(html.EscapeString(text[last:loc[0]]))
		b.WriteString(highlightOpen)
		b.WriteString(html.EscapeString(text[loc[0]:loc[1]]))
		b.WriteString(highlightClose)
		last = loc[1]
	}
	b.WriteString(html.EscapeString(text[last:]))
	return b.String()
}
