// Package exporter writes the collection as JSON or Netscape bookmark HTML.
package exporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/nikbrunner/quickmark/internal/model"
)

// Kind selects an export format.
type Kind int

const (
	KindJSON  Kind = iota // bare bookmark array
	KindState             // full state envelope
	KindHTML              // Netscape bookmark HTML
)

// document is the full state envelope.
type document struct {
	Bookmarks  model.Collection `json:"bookmarks"`
	Settings   model.Settings   `json:"settings"`
	ExportDate string           `json:"exportDate"`
}

// ExportJSON returns the collection as an indented JSON array.
func ExportJSON(c model.Collection) ([]byte, error) {
	if c == nil {
		c = model.Collection{}
	}
	return marshal(c)
}

// ExportState returns bookmarks and settings as an indented envelope
// stamped with now.
func ExportState(state model.State, now time.Time) ([]byte, error) {
	doc := document{
		Bookmarks:  state.Bookmarks,
		Settings:   state.Settings,
		ExportDate: now.UTC().Format(time.RFC3339),
	}
	if doc.Bookmarks == nil {
		doc.Bookmarks = model.Collection{}
	}
	if doc.Settings == nil {
		doc.Settings = model.Settings{}
	}
	return marshal(doc)
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileName returns the default export file name for kind on the day of now.
func FileName(kind Kind, now time.Time) string {
	date := now.Format("2006-01-02")
	switch kind {
	case KindState:
		return fmt.Sprintf("link-bookmarks-%s.json", date)
	case KindHTML:
		return fmt.Sprintf("bookmarks_%s.html", date)
	default:
		return fmt.Sprintf("bookmarks_%s.json", date)
	}
}

// DefaultExportPath returns the default export file path in ~/Downloads.
func DefaultExportPath(kind Kind, now time.Time) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads", FileName(kind, now)), nil
}

// WriteFile writes an export to path through a rename, creating the
// directory if needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}
