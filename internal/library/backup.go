package library

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nikbrunner/quickmark/internal/exporter"
	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/model"
)

// FileBackup returns a BackupFunc that writes the state as an export
// envelope into dir, one file per call.
func FileBackup(dir string) BackupFunc {
	return func(_ context.Context, state model.State) error {
		now := time.Now()
		data, err := exporter.ExportState(state, now)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("quickmark-backup-%s.json", now.UTC().Format("20060102T150405.000000000Z"))
		return exporter.WriteFile(filepath.Join(dir, name), data)
	}
}

func (l *Library) backupIfEnabled(ctx context.Context, reason string) error {
	if l.backup == nil {
		return nil
	}

	state, err := l.State(ctx)
	if err != nil {
		return err
	}
	if !state.Settings.Bool(model.SettingAutoBackup, true) {
		return nil
	}

	if err := l.backup(ctx, state); err != nil {
		l.log.Error("backup failed", logger.String("reason", reason), logger.Error(err))
		return fmt.Errorf("backup before %s: %w", reason, err)
	}
	l.log.Info("state backed up", logger.String("reason", reason), logger.Int("bookmarks", len(state.Bookmarks)))
	return nil
}
