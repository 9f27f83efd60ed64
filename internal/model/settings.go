package model

// Settings maps option names to values, as stored under the settings key.
type Settings map[string]any

// SettingAutoBackup enables a state backup before destructive operations.
const SettingAutoBackup = "autoBackup"

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		SettingAutoBackup: true,
	}
}

// Bool returns a boolean option, or def when it is unset or not a boolean.
func (s Settings) Bool(key string, def bool) bool {
	v, ok := s[key].(bool)
	if !ok {
		return def
	}
	return v
}

// State is the full application state: bookmarks plus settings.
type State struct {
	Bookmarks Collection `json:"bookmarks"`
	Settings  Settings   `json:"settings"`
}
