package picker

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/quickmark/internal/model"
)

func gitRecords() model.Collection {
	return model.Collection{
		{ID: "b1", Title: "GitHub", URL: "https://github.com", Tags: []string{"code"}},
		{ID: "b2", Title: "GitLab", URL: "https://gitlab.com", Tags: []string{}},
		{ID: "b3", Title: "Go Docs", URL: "https://go.dev", Tags: []string{}},
	}
}

func update(p Picker, msg tea.Msg) (Picker, tea.Cmd) {
	newModel, cmd := p.Update(msg)
	return newModel.(Picker), cmd
}

func typeText(p Picker, s string) Picker {
	for _, r := range s {
		p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return p
}

func TestPicker_InitialState(t *testing.T) {
	p := New(gitRecords(), "git")

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if len(p.results) != 2 {
		t.Errorf("expected 2 results, got %d", len(p.results))
	}
	if p.Query() != "git" {
		t.Errorf("expected query 'git', got %q", p.Query())
	}
}

func TestPicker_EmptyQueryListsAll(t *testing.T) {
	p := New(gitRecords(), "")

	if len(p.results) != 3 {
		t.Errorf("expected 3 results, got %d", len(p.results))
	}
}

func TestPicker_TypingNarrowsList(t *testing.T) {
	p := New(gitRecords(), "")
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})

	p = typeText(p, "LAB")

	if len(p.results) != 1 || p.results[0].ID != "b2" {
		t.Fatalf("expected only GitLab, got %+v", p.results)
	}
	if p.cursor != 0 {
		t.Errorf("expected cursor reset to 0, got %d", p.cursor)
	}

	// Backspace widens it again
	for i := 0; i < 3; i++ {
		p, _ = update(p, tea.KeyMsg{Type: tea.KeyBackspace})
	}
	if len(p.results) != 3 {
		t.Errorf("expected 3 results after clearing filter, got %d", len(p.results))
	}
}

func TestPicker_FuzzyFallback(t *testing.T) {
	p := New(gitRecords(), "ghb")

	if len(p.results) != 1 || p.results[0].ID != "b1" {
		t.Errorf("expected fuzzy match on GitHub, got %+v", p.results)
	}
}

func TestPicker_VimKeysInListMode(t *testing.T) {
	p := New(gitRecords(), "git")

	// While the filter has focus, j is text
	p = typeText(p, "j")
	if p.Query() != "gitj" {
		t.Fatalf("expected j typed into filter, got %q", p.Query())
	}
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyBackspace})

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyTab})
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1, got %d", p.cursor)
	}

	// Bounds
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if p.cursor != 1 {
		t.Errorf("expected cursor to stay at 1, got %d", p.cursor)
	}
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if p.Query() != "git" {
		t.Errorf("expected filter untouched in list mode, got %q", p.Query())
	}
}

func TestPicker_ArrowKeys(t *testing.T) {
	p := New(gitRecords(), "git")

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after down arrow, got %d", p.cursor)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 after up arrow, got %d", p.cursor)
	}
}

func TestPicker_SelectItem(t *testing.T) {
	p := New(gitRecords(), "git")
	p.cursor = 1 // Select GitLab

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	got := p.Selected()
	if got == nil || got.ID != "b2" {
		t.Errorf("expected GitLab to be selected, got %+v", got)
	}
}

func TestPicker_EnterWithoutResults(t *testing.T) {
	p := New(gitRecords(), "zzzzzz")

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil || p.Selected() != nil {
		t.Error("expected Enter to do nothing without results")
	}
}

func TestPicker_Cancel(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		p := New(gitRecords(), "git")

		p, cmd := update(p, tea.KeyMsg{Type: key})

		if !p.Cancelled() {
			t.Errorf("expected cancelled after %v", key)
		}
		if cmd == nil {
			t.Error("expected quit command after cancel")
		}
		if p.Selected() != nil {
			t.Error("expected nil when cancelled")
		}
	}
}

func TestPicker_CopyURL(t *testing.T) {
	p := New(gitRecords(), "git")
	var copied string
	p.copyURL = func(s string) error {
		copied = s
		return nil
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyCtrlY})

	if copied != "https://gitlab.com" {
		t.Errorf("expected GitLab URL copied, got %q", copied)
	}
	if !strings.Contains(p.View(), "Copied https://gitlab.com") {
		t.Error("expected copy status in view")
	}

	p.copyURL = func(string) error { return errors.New("no clipboard") }
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyCtrlY})
	if !strings.Contains(p.View(), "Copy failed") {
		t.Error("expected failure status in view")
	}
}

func TestPicker_ViewScrollsToCursor(t *testing.T) {
	var c model.Collection
	for i := 0; i < 30; i++ {
		c = append(c, model.Record{ID: string(rune('a' + i%26)), Title: "Item " + string(rune('A'+i%26)), URL: "https://example.com/" + string(rune('a'+i%26))})
	}
	p := New(c, "")
	p, _ = update(p, tea.WindowSizeMsg{Width: 80, Height: 12})

	for i := 0; i < 29; i++ {
		p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	}

	view := p.View()
	if !strings.Contains(view, "https://example.com/d") {
		t.Error("expected last item visible")
	}
	if strings.Contains(view, "https://example.com/a\n") {
		t.Error("expected first item scrolled out")
	}
}
