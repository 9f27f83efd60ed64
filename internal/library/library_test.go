package library_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikbrunner/quickmark/internal/importer"
	"github.com/nikbrunner/quickmark/internal/library"
	"github.com/nikbrunner/quickmark/internal/merge"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/storage"
	"github.com/nikbrunner/quickmark/internal/tree"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func strPtr(s string) *string { return &s }

func newLibrary(t *testing.T, opts ...library.Option) (*library.Library, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.json")
	return library.New(storage.NewFileKV(path), opts...), path
}

// failingKV fails every operation selected by its flags.
type failingKV struct {
	storage.KV
	failGet, failSet, failClear bool
}

var errBackend = errors.New("backend down")

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errBackend
	}
	return f.KV.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, entries map[string][]byte) error {
	if f.failSet {
		return errBackend
	}
	return f.KV.Set(ctx, entries)
}

func (f *failingKV) Clear(ctx context.Context) error {
	if f.failClear {
		return errBackend
	}
	return f.KV.Clear(ctx)
}

func urls(c model.Collection) []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = r.URL
	}
	return out
}

func TestLoad_EmptyStore(t *testing.T) {
	lib, _ := newLibrary(t)

	c, err := lib.Load(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, c != nil)
	assert.Assert(t, is.Len(c, 0))
}

func TestLoad_CorruptFileYieldsEmpty(t *testing.T) {
	lib, path := newLibrary(t)
	assert.NilError(t, os.WriteFile(path, []byte("garbage"), 0644))

	c, err := lib.Load(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, is.Len(c, 0))
}

func TestLoad_UndecodableBlobYieldsEmpty(t *testing.T) {
	lib, path := newLibrary(t)
	assert.NilError(t, os.WriteFile(path, []byte(`{"bookmarks": {"not": "a list"}}`), 0644))

	c, err := lib.Load(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, is.Len(c, 0))
}

func TestAdd_PrependsAndPersists(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	_, outcome, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "First", URL: "https://a.example"}))
	assert.NilError(t, err)
	assert.Equal(t, outcome, merge.Added)

	rec, outcome, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Second", URL: "https://b.example", Tags: []string{"x"}}))
	assert.NilError(t, err)
	assert.Equal(t, outcome, merge.Added)
	assert.Assert(t, rec.ID != "")

	c, err := lib.Load(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, urls(c), []string{"https://b.example", "https://a.example"})
	assert.DeepEqual(t, c[0].Tags, []string{"x"})
}

func TestAdd_DuplicateLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	first, _, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))
	assert.NilError(t, err)

	existing, outcome, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Again", URL: "https://a.example"}))
	assert.NilError(t, err)
	assert.Equal(t, outcome, merge.DuplicateSkipped)
	assert.Equal(t, existing.ID, first.ID)

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 1))
	assert.Equal(t, c[0].Title, "A")
}

func TestAdd_InvalidURL(t *testing.T) {
	lib, _ := newLibrary(t)

	_, _, err := lib.Add(context.Background(), model.NewCandidate(model.NewCandidateParams{Title: "Bad", URL: "not a url"}))
	assert.ErrorIs(t, err, model.ErrInvalidURL)
	assert.Assert(t, !errors.Is(err, library.ErrPersistence))
}

func TestAdd_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KV: storage.NewFileKV(filepath.Join(t.TempDir(), "s.json")), failSet: true}
	lib := library.New(kv)

	_, _, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))
	assert.ErrorIs(t, err, library.ErrPersistence)
	assert.ErrorIs(t, err, errBackend)

	// Nothing was stored; retrying once the backend recovers succeeds
	kv.failSet = false
	c, err := lib.Load(ctx)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(c, 0))

	_, outcome, err := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))
	assert.NilError(t, err)
	assert.Equal(t, outcome, merge.Added)
}

func TestLoad_BackendFailure(t *testing.T) {
	kv := &failingKV{KV: storage.NewFileKV(filepath.Join(t.TempDir(), "s.json")), failGet: true}
	lib := library.New(kv)

	_, err := lib.Load(context.Background())
	assert.ErrorIs(t, err, library.ErrPersistence)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	a, _, _ := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "B", URL: "https://b.example"}))

	removed, err := lib.Remove(ctx, a.ID)
	assert.NilError(t, err)
	assert.Assert(t, removed)

	removed, err = lib.Remove(ctx, a.ID)
	assert.NilError(t, err)
	assert.Assert(t, !removed)

	removed, err = lib.RemoveURL(ctx, "https://b.example")
	assert.NilError(t, err)
	assert.Assert(t, removed)

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 0))
}

func TestMerge_MixedTitles(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	stats, err := lib.Merge(ctx, []model.Candidate{
		{URL: "https://x.example"},
		{Title: strPtr(""), URL: "https://y.example"},
	})
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, merge.Stats{Added: 1, Skipped: 1, Invalid: 1})

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 1))
	assert.Equal(t, c[0].Title, "https://x.example")
}

func TestImportTree(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Existing", URL: "https://go.dev"}))

	forest := []tree.Node{{
		ID: "0",
		Children: []tree.Node{
			{ID: "1", Title: "Bar", Children: []tree.Node{
				{ID: "2", Title: "Go", URL: "https://go.dev"},
				{ID: "3", Title: "Chi", URL: "https://go-chi.io"},
			}},
			{ID: "4", Title: "", Children: []tree.Node{
				{ID: "5", Title: "Zap", URL: "https://pkg.go.dev/go.uber.org/zap"},
			}},
		},
	}}

	stats, err := lib.ImportTree(ctx, forest)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, merge.Stats{Added: 2, Skipped: 1})

	c, _ := lib.Load(ctx)
	assert.DeepEqual(t, urls(c), []string{"https://go.dev", "https://go-chi.io", "https://pkg.go.dev/go.uber.org/zap"})
	assert.Equal(t, c[1].Folder, "Bar")
	assert.Equal(t, c[2].Folder, tree.UnnamedFolder)

	folder, ok := tree.FindFolder(forest, "Bar")
	assert.Assert(t, ok)
	stats, err = lib.ImportFolder(ctx, *folder)
	assert.NilError(t, err)
	assert.DeepEqual(t, stats, merge.Stats{Skipped: 2})
}

func TestImportDocument_Flat(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Go", URL: "https://go.dev"}))

	doc, err := importer.ParseDocument(strings.NewReader(`[
		{"title": "Go again", "url": "https://go.dev"},
		{"title": "Chi", "url": "https://go-chi.io"},
		{"url": "https://untitled.example"},
		7
	]`))
	assert.NilError(t, err)

	result, err := lib.ImportDocument(ctx, doc)
	assert.NilError(t, err)
	assert.Equal(t, result.Kind, importer.Flat)
	assert.DeepEqual(t, result.Stats, merge.Stats{Added: 1, Skipped: 3, Invalid: 1})

	c, _ := lib.Load(ctx)
	assert.DeepEqual(t, urls(c), []string{"https://go.dev", "https://go-chi.io"})
	assert.Equal(t, c[0].Title, "Go")
}

func TestImportDocument_LooseTimestampsKeepRecords(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	doc, err := importer.ParseDocument(strings.NewReader(`[
		{"title": "A", "url": "https://a.example", "createdAt": ""},
		{"title": "B", "url": "https://b.example", "createdAt": 1700000000000},
		{"title": "C", "url": "https://c.example", "createdAt": "2024-01-02"}
	]`))
	assert.NilError(t, err)
	assert.Equal(t, doc.Rejected, 0)

	result, err := lib.ImportDocument(ctx, doc)
	assert.NilError(t, err)
	assert.DeepEqual(t, result.Stats, merge.Stats{Added: 3})

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 3))
	assert.Assert(t, !c[0].CreatedAt.IsZero())
	assert.Equal(t, c[1].CreatedAt.UnixMilli(), int64(1700000000000))
	assert.Equal(t, c[2].CreatedAt.Year(), 2024)
}

func TestImportDocument_EnvelopeReplacesState(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Old", URL: "https://old.example"}))

	doc, err := importer.ParseDocument(strings.NewReader(`{
		"bookmarks": [
			{"id": "x", "title": "New", "url": "https://new.example", "tags": ["a", "a", " "]},
			{"id": "y", "title": "Dup", "url": "https://new.example"}
		],
		"settings": {"autoBackup": false, "theme": "dark"}
	}`))
	assert.NilError(t, err)

	result, err := lib.ImportDocument(ctx, doc)
	assert.NilError(t, err)
	assert.Equal(t, result.Kind, importer.Envelope)
	assert.DeepEqual(t, result.Stats, merge.Stats{Added: 1, Skipped: 1})

	state, err := lib.State(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, urls(state.Bookmarks), []string{"https://new.example"})
	assert.DeepEqual(t, state.Bookmarks[0].Tags, []string{"a"})
	assert.Assert(t, state.Bookmarks[0].ID != "x")
	assert.DeepEqual(t, state.Settings, model.Settings{"autoBackup": false, "theme": "dark"})
}

func TestBackup_RunsBeforeDestructiveOperations(t *testing.T) {
	ctx := context.Background()
	var backups []model.State
	lib, _ := newLibrary(t, library.WithBackup(func(_ context.Context, s model.State) error {
		backups = append(backups, s)
		return nil
	}))
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))

	assert.NilError(t, lib.Clear(ctx))
	assert.Assert(t, is.Len(backups, 1))
	assert.DeepEqual(t, urls(backups[0].Bookmarks), []string{"https://a.example"})

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 0))

	// Disabled by setting
	assert.NilError(t, lib.SetSetting(ctx, model.SettingAutoBackup, false))
	assert.NilError(t, lib.Clear(ctx))
	assert.Assert(t, is.Len(backups, 1))
}

func TestBackup_FailureAbortsClear(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t, library.WithBackup(func(context.Context, model.State) error {
		return errors.New("disk full")
	}))
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))

	assert.ErrorContains(t, lib.Clear(ctx), "disk full")

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 1))
}

func TestFileBackup_WritesEnvelope(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	lib, _ := newLibrary(t, library.WithBackup(library.FileBackup(dir)))
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))

	assert.NilError(t, lib.Clear(ctx))

	entries, err := os.ReadDir(dir)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(entries, 1))

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	assert.NilError(t, err)
	defer f.Close()

	doc, err := importer.ParseDocument(f)
	assert.NilError(t, err)
	assert.Equal(t, doc.Kind, importer.Envelope)
	assert.Assert(t, is.Len(doc.Bookmarks, 1))
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example", Tags: []string{"go", "web"}}))
	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "B", URL: "https://b.example", Tags: []string{"go"}}))

	counts, err := lib.Tags(ctx)
	assert.NilError(t, err)
	assert.Equal(t, counts[0].Tag, "go")
	assert.Equal(t, counts[0].Count, 2)

	n, err := lib.RenameTag(ctx, "web", "go")
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	n, err = lib.DeleteTag(ctx, "go")
	assert.NilError(t, err)
	assert.Equal(t, n, 2)

	c, _ := lib.Load(ctx)
	assert.Assert(t, is.Len(c, 2))
	for _, r := range c {
		assert.DeepEqual(t, r.Tags, []string{})
	}
}

func TestStatsAndSearch(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	stats, err := lib.Stats(ctx)
	assert.NilError(t, err)
	assert.Equal(t, stats.Total, 0)
	assert.Assert(t, stats.LastAdded == nil)

	lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Go Docs", URL: "https://go.dev", Tags: []string{"go"}}))
	newest, _, _ := lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "Rust", URL: "https://rust-lang.org", Tags: []string{"rust", "go"}}))

	stats, err = lib.Stats(ctx)
	assert.NilError(t, err)
	assert.Equal(t, stats.Total, 2)
	assert.Equal(t, stats.Tags, 2)
	assert.Assert(t, stats.LastAdded.Equal(newest.CreatedAt))

	found, err := lib.Search(ctx, "GO.DEV")
	assert.NilError(t, err)
	assert.DeepEqual(t, urls(found), []string{"https://go.dev"})
}

func TestSettings_DefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	lib, _ := newLibrary(t)

	settings, err := lib.Settings(ctx)
	assert.NilError(t, err)
	assert.Assert(t, settings.Bool(model.SettingAutoBackup, false))

	assert.NilError(t, lib.SetSetting(ctx, "theme", "dark"))

	settings, err = lib.Settings(ctx)
	assert.NilError(t, err)
	if diff := cmp.Diff(model.Settings{"autoBackup": true, "theme": "dark"}, settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	kv, err := storage.NewSQLiteKV(filepath.Join(t.TempDir(), "storage.db"))
	assert.NilError(t, err)
	defer kv.Close()
	lib := library.New(kv)

	_, _, err = lib.Add(ctx, model.NewCandidate(model.NewCandidateParams{Title: "A", URL: "https://a.example"}))
	assert.NilError(t, err)

	c, err := lib.Load(ctx)
	assert.NilError(t, err)
	assert.DeepEqual(t, urls(c), []string{"https://a.example"})
}
