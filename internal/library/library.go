// Package library is the bookmark collection store. Every mutation loads the
// stored collection, applies a pure transform and persists the whole result.
// Concurrent writers are not coordinated; the last write wins.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nikbrunner/quickmark/internal/importer"
	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/merge"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/search"
	"github.com/nikbrunner/quickmark/internal/storage"
	"github.com/nikbrunner/quickmark/internal/tags"
	"github.com/nikbrunner/quickmark/internal/tree"
)

// ErrPersistence wraps every backend read or write failure. The operation
// had no effect and may be retried.
var ErrPersistence = errors.New("persistence failure")

// BackupFunc receives the current state before a destructive operation.
type BackupFunc func(ctx context.Context, state model.State) error

// Library is the collection store.
type Library struct {
	kv     storage.KV
	log    logger.Logger
	backup BackupFunc
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(l *Library) { l.log = log }
}

// WithBackup sets the function run before Clear and envelope imports while
// the autoBackup setting is on.
func WithBackup(fn BackupFunc) Option {
	return func(l *Library) { l.backup = fn }
}

// New creates a Library over kv.
func New(kv storage.KV, opts ...Option) *Library {
	l := &Library{kv: kv, log: logger.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats summarizes the collection.
type Stats struct {
	Total     int        `json:"total"`
	Tags      int        `json:"tags"`
	LastAdded *time.Time `json:"lastAdded,omitempty"`
}

// ImportResult reports what an import did.
type ImportResult struct {
	Kind  importer.Kind `json:"-"`
	Stats merge.Stats   `json:"stats"`
}

// Load returns the stored collection. A missing or unreadable blob yields an
// empty collection; only backend failures are errors.
func (l *Library) Load(ctx context.Context) (model.Collection, error) {
	data, ok, err := l.kv.Get(ctx, storage.KeyBookmarks)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			l.log.Warn("stored state is corrupt, starting empty", logger.Error(err))
			return model.Collection{}, nil
		}
		l.log.Error("failed to load bookmarks", logger.Error(err))
		return nil, fmt.Errorf("%w: load bookmarks: %w", ErrPersistence, err)
	}
	if !ok {
		return model.Collection{}, nil
	}

	var c model.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		l.log.Warn("stored bookmarks are corrupt, starting empty", logger.Error(err))
		return model.Collection{}, nil
	}
	if c == nil {
		c = model.Collection{}
	}
	for i := range c {
		if c[i].Tags == nil {
			c[i].Tags = []string{}
		}
	}
	return c, nil
}

// Persist replaces the stored collection.
func (l *Library) Persist(ctx context.Context, c model.Collection) error {
	data, err := encodeCollection(c)
	if err != nil {
		return err
	}
	return l.write(ctx, map[string][]byte{storage.KeyBookmarks: data})
}

// Add adds a single candidate at the front of the collection.
// A duplicate URL returns the existing record and writes nothing. Validation
// errors come from the model package and are not persistence failures.
func (l *Library) Add(ctx context.Context, cand model.Candidate) (model.Record, merge.Outcome, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return model.Record{}, merge.Added, err
	}

	out, outcome, record, err := merge.AddOne(c, cand)
	if err != nil {
		return model.Record{}, outcome, err
	}
	if outcome == merge.DuplicateSkipped {
		l.log.Debug("bookmark already saved", logger.String("url", record.URL))
		return record, outcome, nil
	}

	if err := l.Persist(ctx, out); err != nil {
		return model.Record{}, outcome, err
	}
	l.log.Debug("bookmark added", logger.String("id", record.ID), logger.String("url", record.URL))
	return record, outcome, nil
}

// Remove deletes the record with the given ID. It reports false when no
// record matched.
func (l *Library) Remove(ctx context.Context, id string) (bool, error) {
	return l.removeWhere(ctx, func(c model.Collection) int { return c.IndexOfID(id) })
}

// RemoveURL deletes the record saved for url. It reports false when no
// record matched.
func (l *Library) RemoveURL(ctx context.Context, url string) (bool, error) {
	return l.removeWhere(ctx, func(c model.Collection) int { return c.IndexOfURL(url) })
}

func (l *Library) removeWhere(ctx context.Context, index func(model.Collection) int) (bool, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return false, err
	}

	i := index(c)
	if i == -1 {
		return false, nil
	}

	out := make(model.Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	out = append(out, c[i+1:]...)
	if err := l.Persist(ctx, out); err != nil {
		return false, err
	}
	l.log.Debug("bookmark removed", logger.String("id", c[i].ID), logger.String("url", c[i].URL))
	return true, nil
}

// Merge appends candidates that are not yet saved.
func (l *Library) Merge(ctx context.Context, cands []model.Candidate) (merge.Stats, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return merge.Stats{}, err
	}

	out, stats := merge.MergeMany(c, cands)
	if stats.Added > 0 {
		if err := l.Persist(ctx, out); err != nil {
			return merge.Stats{}, err
		}
	}
	l.log.Debug("merged bookmarks",
		logger.Int("added", stats.Added),
		logger.Int("skipped", stats.Skipped),
		logger.Int("invalid", stats.Invalid),
	)
	return stats, nil
}

// ImportTree merges every bookmark of a native tree.
func (l *Library) ImportTree(ctx context.Context, forest []tree.Node) (merge.Stats, error) {
	return l.Merge(ctx, tree.ExtractAll(forest))
}

// ImportFolder merges the bookmarks below a single folder.
func (l *Library) ImportFolder(ctx context.Context, folder tree.Node) (merge.Stats, error) {
	return l.Merge(ctx, tree.ExtractFolder(folder))
}

// ImportDocument applies a parsed import file.
// A flat document is merged; entries without a title or URL are skipped.
// An envelope replaces bookmarks and settings in a single write, after a
// backup when enabled. Undecodable entries count as skipped and invalid.
func (l *Library) ImportDocument(ctx context.Context, doc importer.Document) (ImportResult, error) {
	result := ImportResult{Kind: doc.Kind}

	switch doc.Kind {
	case importer.Envelope:
		if err := l.backupIfEnabled(ctx, "import"); err != nil {
			return result, err
		}

		bookmarks, stats := merge.MergeMany(model.Collection{}, doc.Bookmarks)
		if err := l.writeState(ctx, model.State{Bookmarks: bookmarks, Settings: doc.Settings}); err != nil {
			return result, err
		}
		result.Stats = stats

	default:
		titled, dropped := merge.RequireTitled(doc.Bookmarks)
		stats, err := l.Merge(ctx, titled)
		if err != nil {
			return result, err
		}
		stats.Skipped += dropped
		result.Stats = stats
	}

	result.Stats.Skipped += doc.Rejected
	result.Stats.Invalid += doc.Rejected
	l.log.Info("imported bookmarks",
		logger.String("kind", doc.Kind.String()),
		logger.Int("added", result.Stats.Added),
		logger.Int("skipped", result.Stats.Skipped),
	)
	return result, nil
}

// DeleteTag removes tag from every record and returns how many records
// carried it. Records are never removed.
func (l *Library) DeleteTag(ctx context.Context, tag string) (int, error) {
	return l.RenameTag(ctx, tag, "")
}

// RenameTag replaces from with to on every record and returns how many
// records carried from. An empty to deletes the tag.
func (l *Library) RenameTag(ctx context.Context, from, to string) (int, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return 0, err
	}

	affected := 0
	for _, r := range c {
		if r.HasTag(from) {
			affected++
		}
	}
	if affected == 0 || from == to {
		return affected, nil
	}

	if err := l.Persist(ctx, tags.Rename(c, from, to)); err != nil {
		return 0, err
	}
	return affected, nil
}

// Tags returns tag usage, most used first.
func (l *Library) Tags(ctx context.Context) ([]tags.Count, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return tags.Frequencies(c), nil
}

// Search returns the records whose title or URL contains query.
func (l *Library) Search(ctx context.Context, query string) (model.Collection, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(c, query), nil
}

// Stats counts records and distinct tags. LastAdded is the creation time of
// the newest manual addition, the first record.
func (l *Library) Stats(ctx context.Context) (Stats, error) {
	c, err := l.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(c), Tags: tags.Distinct(c)}
	if len(c) > 0 {
		last := c[0].CreatedAt
		stats.LastAdded = &last
	}
	return stats, nil
}

// Clear removes all bookmarks and settings, after a backup when enabled.
func (l *Library) Clear(ctx context.Context) error {
	if err := l.backupIfEnabled(ctx, "clear"); err != nil {
		return err
	}
	if err := l.kv.Clear(ctx); err != nil {
		l.log.Error("failed to clear storage", logger.Error(err))
		return fmt.Errorf("%w: clear: %w", ErrPersistence, err)
	}
	l.log.Info("cleared all data")
	return nil
}

// encodeCollection marshals c, writing an empty array for a nil collection.
func encodeCollection(c model.Collection) ([]byte, error) {
	if c == nil {
		c = model.Collection{}
	}
	return json.Marshal(c)
}

func (l *Library) write(ctx context.Context, entries map[string][]byte) error {
	if err := l.kv.Set(ctx, entries); err != nil {
		l.log.Error("failed to persist", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
