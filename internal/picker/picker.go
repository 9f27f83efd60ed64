// Package picker is an interactive terminal list for choosing a bookmark.
package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("108"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	hintKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))
)

// Picker lists records and narrows them as the filter is typed.
// While the filter has focus, typed keys edit it; Tab moves focus to the
// list where j/k navigate.
type Picker struct {
	all       model.Collection
	results   model.Collection
	input     textinput.Model
	keys      KeyMap
	cursor    int
	selected  bool
	cancelled bool
	status    string
	copyURL   func(string) error
	width     int
	height    int
}

// New creates a new Picker over c, pre-filtered by query.
func New(c model.Collection, query string) Picker {
	input := textinput.New()
	input.Prompt = "Search: "
	input.Placeholder = "title or url"
	input.SetValue(query)
	input.Focus()

	p := Picker{
		all:     c,
		input:   input,
		keys:    DefaultKeyMap(),
		copyURL: clipboard.WriteAll,
		width:   80,
		height:  24,
	}
	p.refilter()
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case tea.KeyMsg:
		// Typed text belongs to the filter while it has focus
		if p.input.Focused() && msg.Type == tea.KeyRunes {
			break
		}

		switch {
		case key.Matches(msg, p.keys.Cancel), key.Matches(msg, p.keys.Quit):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) == 0 {
				return p, nil
			}
			p.selected = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			p.moveDown()
			return p, nil

		case key.Matches(msg, p.keys.Up):
			p.moveUp()
			return p, nil

		case key.Matches(msg, p.keys.ToggleFocus):
			if p.input.Focused() {
				p.input.Blur()
			} else {
				p.input.Focus()
			}
			return p, nil

		case key.Matches(msg, p.keys.Filter):
			p.input.Focus()
			return p, nil

		case key.Matches(msg, p.keys.CopyURL):
			p.copyCurrent()
			return p, nil
		}

		if !p.input.Focused() {
			return p, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.refilter()
	}
	return p, cmd
}

func (p *Picker) moveDown() {
	if p.cursor < len(p.results)-1 {
		p.cursor++
	}
}

func (p *Picker) moveUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

// refilter narrows the list by substring match on title and URL, falling
// back to fuzzy title ranking when nothing contains the query.
func (p *Picker) refilter() {
	query := p.input.Value()
	p.results = search.Filter(p.all, query)
	if len(p.results) == 0 && strings.TrimSpace(query) != "" {
		for _, r := range search.Fuzzy(p.all, query) {
			p.results = append(p.results, r.Record)
		}
	}
	p.cursor = 0
	p.status = ""
}

func (p *Picker) copyCurrent() {
	if len(p.results) == 0 {
		return
	}
	if err := p.copyURL(p.results[p.cursor].URL); err != nil {
		p.status = "Copy failed: " + err.Error()
		return
	}
	p.status = "Copied " + p.results[p.cursor].URL
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d results)", p.input.View(), len(p.results))))
	b.WriteString("\n\n")

	// List items, scrolled so the cursor stays visible
	start, end := p.window()
	for i := start; i < end; i++ {
		r := p.results[i]
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		line := style.Render(truncateText(r.Title, p.width-2))
		if len(r.Tags) > 0 {
			line += " " + tagStyle.Render("#"+strings.Join(r.Tags, " #"))
		}
		fmt.Fprintf(&b, "%s%s\n", cursor, line)
		fmt.Fprintf(&b, "   %s\n", urlStyle.Render(truncateText(r.URL, p.width-3)))
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(hintStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(renderHints(p.hints()))

	return b.String()
}

// window returns the range of results that fit the terminal height.
func (p Picker) window() (int, int) {
	visible := (p.height - 6) / 2
	if visible < 1 {
		visible = 1
	}
	if len(p.results) <= visible {
		return 0, len(p.results)
	}

	start := p.cursor - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > len(p.results) {
		start = len(p.results) - visible
	}
	return start, start + visible
}

// Selected returns the selected record, or nil if cancelled.
func (p Picker) Selected() *model.Record {
	if p.cancelled || !p.selected {
		return nil
	}
	if p.cursor < len(p.results) {
		r := p.results[p.cursor]
		return &r
	}
	return nil
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Query returns the current filter text.
func (p Picker) Query() string {
	return p.input.Value()
}
