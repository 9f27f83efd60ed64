package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nikbrunner/quickmark/internal/tree"
)

// ErrUnknownTreeFormat is returned when ParseTree cannot tell the input format.
var ErrUnknownTreeFormat = errors.New("unknown bookmark tree format")

// ParseTree reads a native bookmark tree from Netscape HTML, a Chromium
// Bookmarks file or a JSON dump of the browser bookmarks API.
func ParseTree(r io.Reader) ([]tree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownTreeFormat)
	}

	switch trimmed[0] {
	case '<':
		return ParseHTMLTree(bytes.NewReader(trimmed))
	case '{':
		return ParseChromium(bytes.NewReader(trimmed))
	case '[':
		var forest []tree.Node
		if err := json.Unmarshal(trimmed, &forest); err != nil {
			return nil, fmt.Errorf("parse bookmark tree: %w", err)
		}
		return forest, nil
	default:
		return nil, ErrUnknownTreeFormat
	}
}
