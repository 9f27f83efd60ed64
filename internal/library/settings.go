package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nikbrunner/quickmark/internal/logger"
	"github.com/nikbrunner/quickmark/internal/model"
	"github.com/nikbrunner/quickmark/internal/storage"
)

// Settings returns the stored settings, or the defaults when none are stored
// or they cannot be decoded.
func (l *Library) Settings(ctx context.Context) (model.Settings, error) {
	data, ok, err := l.kv.Get(ctx, storage.KeySettings)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			l.log.Warn("stored state is corrupt, using default settings", logger.Error(err))
			return model.DefaultSettings(), nil
		}
		return nil, fmt.Errorf("%w: load settings: %w", ErrPersistence, err)
	}
	if !ok {
		return model.DefaultSettings(), nil
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil || settings == nil {
		l.log.Warn("stored settings are corrupt, using defaults")
		return model.DefaultSettings(), nil
	}
	return settings, nil
}

// SetSetting stores a single option, keeping the others.
func (l *Library) SetSetting(ctx context.Context, key string, value any) error {
	settings, err := l.Settings(ctx)
	if err != nil {
		return err
	}
	settings[key] = value

	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return l.write(ctx, map[string][]byte{storage.KeySettings: data})
}

// State returns bookmarks and settings together.
func (l *Library) State(ctx context.Context) (model.State, error) {
	bookmarks, err := l.Load(ctx)
	if err != nil {
		return model.State{}, err
	}
	settings, err := l.Settings(ctx)
	if err != nil {
		return model.State{}, err
	}
	return model.State{Bookmarks: bookmarks, Settings: settings}, nil
}

// writeState replaces bookmarks and settings in one write.
func (l *Library) writeState(ctx context.Context, state model.State) error {
	bookmarks, err := encodeCollection(state.Bookmarks)
	if err != nil {
		return err
	}

	settings := state.Settings
	if settings == nil {
		settings = model.Settings{}
	}
	settingsData, err := json.Marshal(settings)
	if err != nil {
		return err
	}

	return l.write(ctx, map[string][]byte{
		storage.KeyBookmarks: bookmarks,
		storage.KeySettings:  settingsData,
	})
}
