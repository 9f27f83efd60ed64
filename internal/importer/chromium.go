package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/nikbrunner/quickmark/internal/tree"
)

// chromiumEpochOffset is the number of microseconds between 1601-01-01 and
// the Unix epoch.
const chromiumEpochOffset = 11644473600 * 1000 * 1000

type chromiumFile struct {
	Roots map[string]json.RawMessage `json:"roots"`
}

type chromiumNode struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	URL       string         `json:"url"`
	DateAdded string         `json:"date_added"`
	Children  []chromiumNode `json:"children"`
}

// chromiumRoots lists the profile roots in the order the browser shows them.
var chromiumRoots = []string{"bookmark_bar", "other", "synced"}

// ParseChromium reads a Chromium profile Bookmarks file.
// The result holds one untitled root whose children are the profile roots.
func ParseChromium(r io.Reader) ([]tree.Node, error) {
	var file chromiumFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse chromium bookmarks: %w", err)
	}
	if file.Roots == nil {
		return nil, fmt.Errorf("parse chromium bookmarks: missing roots")
	}

	root := tree.Node{ID: "0"}
	for _, name := range chromiumRoots {
		raw, ok := file.Roots[name]
		if !ok {
			continue
		}
		var n chromiumNode
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, fmt.Errorf("parse chromium root %s: %w", name, err)
		}
		root.Children = append(root.Children, n.toNode())
	}
	return []tree.Node{root}, nil
}

func (c chromiumNode) toNode() tree.Node {
	n := tree.Node{
		ID:        c.ID,
		Title:     c.Name,
		DateAdded: chromiumTimeToMillis(c.DateAdded),
	}
	if c.Type == "url" {
		n.URL = c.URL
		return n
	}
	for _, child := range c.Children {
		n.Children = append(n.Children, child.toNode())
	}
	return n
}

// chromiumTimeToMillis converts microseconds since 1601 to milliseconds
// since the Unix epoch. Returns 0 for missing or pre-epoch values.
func chromiumTimeToMillis(v string) int64 {
	us, err := strconv.ParseInt(v, 10, 64)
	if err != nil || us <= chromiumEpochOffset {
		return 0
	}
	return (us - chromiumEpochOffset) / 1000
}

// DefaultChromiumPath returns the Bookmarks file of the default Chrome profile.
func DefaultChromiumPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			return "", fmt.Errorf("LOCALAPPDATA is not set")
		}
		return filepath.Join(local, "Google", "Chrome", "User Data", "Default", "Bookmarks"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Bookmarks"), nil
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "google-chrome", "Default", "Bookmarks"), nil
	}
}
