// Package importer reads bookmark documents and native browser bookmark trees.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nikbrunner/quickmark/internal/model"
)

// ErrMalformedDocument is returned for input that is neither a bookmark
// array nor a state envelope.
var ErrMalformedDocument = errors.New("malformed bookmark document")

// Kind tells how a document must be applied to the collection.
type Kind int

const (
	Flat     Kind = iota // bare array, merged into the collection
	Envelope             // full state, replaces the collection and settings
)

func (k Kind) String() string {
	if k == Envelope {
		return "envelope"
	}
	return "flat"
}

// Document is a parsed import file.
type Document struct {
	Kind       Kind
	Bookmarks  []model.Candidate
	Settings   model.Settings // envelope only, never nil there
	ExportDate string         // envelope only, as written
	Rejected   int            // array elements that could not be decoded
}

type envelope struct {
	Bookmarks  *[]json.RawMessage `json:"bookmarks"`
	Settings   model.Settings     `json:"settings"`
	ExportDate string             `json:"exportDate"`
}

// ParseDocument reads a JSON import file.
// A bare array is a Flat document; an object with a bookmarks array is an
// Envelope. Elements that fail to decode are counted in Rejected and never
// abort the document.
func ParseDocument(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}

	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}

	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		doc := Document{Kind: Flat}
		doc.Bookmarks, doc.Rejected = decodeCandidates(raw)
		return doc, nil

	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		if env.Bookmarks == nil {
			return Document{}, fmt.Errorf("%w: missing bookmarks", ErrMalformedDocument)
		}

		doc := Document{
			Kind:       Envelope,
			Settings:   env.Settings,
			ExportDate: env.ExportDate,
		}
		if doc.Settings == nil {
			doc.Settings = model.Settings{}
		}
		doc.Bookmarks, doc.Rejected = decodeCandidates(*env.Bookmarks)
		return doc, nil

	default:
		return Document{}, fmt.Errorf("%w: expected array or object", ErrMalformedDocument)
	}
}

func decodeCandidates(raw []json.RawMessage) ([]model.Candidate, int) {
	cands := make([]model.Candidate, 0, len(raw))
	rejected := 0
	for _, element := range raw {
		c, err := decodeCandidate(element)
		if err != nil {
			rejected++
			continue
		}
		cands = append(cands, c)
	}
	return cands, rejected
}

// entry is the on-disk shape of one bookmark. Fields other exporters write
// loosely are kept raw and read leniently.
type entry struct {
	Title       *string         `json:"title"`
	URL         string          `json:"url"`
	Tags        json.RawMessage `json:"tags"`
	Description string          `json:"description"`
	CreatedAt   json.RawMessage `json:"createdAt"`
	Favicon     string          `json:"favicon"`
	Folder      string          `json:"folder"`
}

func decodeCandidate(data []byte) (model.Candidate, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Candidate{}, err
	}

	c := model.Candidate{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Favicon:     e.Favicon,
		Folder:      e.Folder,
		CreatedAt:   parseTimestamp(e.CreatedAt),
	}
	// A tags value that is not a string array is treated as absent.
	var tags []string
	if len(e.Tags) > 0 && json.Unmarshal(e.Tags, &tags) == nil {
		c.Tags = tags
	}
	return c, nil
}

// parseTimestamp accepts RFC 3339 strings, YYYY-MM-DD dates and epoch
// milliseconds. Anything else yields nil and the record gets the import time.
func parseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		if ms <= 0 {
			return nil
		}
		t := time.UnixMilli(int64(ms)).UTC()
		return &t
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var utf8BOM = []byte("\xef\xbb\xbf")
