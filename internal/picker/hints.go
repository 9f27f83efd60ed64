package picker

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// Hint represents a single keybind hint for display.
type Hint struct {
	Key  string // Display key (e.g., "j/k", "Enter")
	Desc string // Short description (e.g., "move", "open")
}

func hintFor(b key.Binding) Hint {
	h := b.Help()
	return Hint{Key: h.Key, Desc: h.Desc}
}

// hints returns the hints for the focused part of the picker.
func (p Picker) hints() []Hint {
	if p.input.Focused() {
		return []Hint{
			{Key: "↑/↓", Desc: "move"},
			hintFor(p.keys.ToggleFocus),
			hintFor(p.keys.Open),
			hintFor(p.keys.CopyURL),
			hintFor(p.keys.Cancel),
		}
	}
	return []Hint{
		{Key: "j/k", Desc: "move"},
		hintFor(p.keys.Filter),
		hintFor(p.keys.Open),
		hintFor(p.keys.CopyURL),
		{Key: "q/Esc", Desc: "cancel"},
	}
}

// renderHints renders hints for the bottom bar: "j/k:move /:filter"
func renderHints(hints []Hint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = hintKeyStyle.Render(h.Key) + ":" + hintStyle.Render(h.Desc)
	}
	return strings.Join(parts, " ")
}
