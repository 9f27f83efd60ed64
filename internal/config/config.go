package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// envPrefix prefixes every environment override.
const envPrefix = "QUICKMARK_"

var ErrInvalidConfig = errors.New("invalid config")

// Config holds application configuration.
type Config struct {
	Backend    string `json:"backend"`
	DataPath   string `json:"dataPath"`
	SQLitePath string `json:"sqlitePath"`
	Redis      Redis  `json:"redis"`
	ListenAddr string `json:"listenAddr"`
	LogLevel   string `json:"logLevel"`
	PrettyLog  bool   `json:"prettyLog"`
	BackupDir  string `json:"backupDir"`
}

// Redis configures the redis backend.
type Redis struct {
	Addr     string `json:"addr"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// DefaultConfig returns the default configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Backend:    BackendFile,
		DataPath:   filepath.Join(dir, "storage.json"),
		SQLitePath: filepath.Join(dir, "storage.db"),
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "quickmark:",
		},
		ListenAddr: "127.0.0.1:7411",
		LogLevel:   "warn",
		PrettyLog:  true,
		BackupDir:  filepath.Join(dir, "backups"),
	}
}

// DefaultDir returns the default config directory: ~/.config/quickmark
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "quickmark"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "quickmark"), nil
}

// DefaultFilePath returns the default config path: ~/.config/quickmark/config.json
func DefaultFilePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads config from a JSONC file, then applies QUICKMARK_* environment
// overrides. The file is created with defaults if it doesn't exist.
func Load(path string, env func(string) string) (*Config, error) {
	config := DefaultConfig(filepath.Dir(path))

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Non-fatal: keep defaults even if the file cannot be created
		_ = Save(path, &config)
	case err != nil:
		return nil, err
	default:
		if err := parse(data, &config); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if env == nil {
		env = os.Getenv
	}
	if err := applyEnv(&config, env); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// parse decodes JSON with comments and trailing commas over the defaults in cfg.
func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, env func(string) string) error {
	fields := map[string]*string{
		"BACKEND":        &cfg.Backend,
		"DATA_PATH":      &cfg.DataPath,
		"SQLITE_PATH":    &cfg.SQLitePath,
		"REDIS_ADDR":     &cfg.Redis.Addr,
		"REDIS_USERNAME": &cfg.Redis.Username,
		"REDIS_PASSWORD": &cfg.Redis.Password,
		"REDIS_PREFIX":   &cfg.Redis.Prefix,
		"LISTEN_ADDR":    &cfg.ListenAddr,
		"LOG_LEVEL":      &cfg.LogLevel,
		"BACKUP_DIR":     &cfg.BackupDir,
	}
	for key, field := range fields {
		if v := env(envPrefix + key); v != "" {
			*field = v
		}
	}

	if v := env(envPrefix + "REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sREDIS_DB must be an integer, got %q", ErrInvalidConfig, envPrefix, v)
		}
		cfg.Redis.DB = db
	}
	if v := env(envPrefix + "PRETTY_LOG"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sPRETTY_LOG must be a boolean, got %q", ErrInvalidConfig, envPrefix, v)
		}
		cfg.PrettyLog = pretty
	}
	return nil
}

// Validate checks that the selected backend is usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if c.DataPath == "" {
			return fmt.Errorf("%w: dataPath is required for the file backend", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlitePath is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis backend", ErrInvalidConfig)
		}
		if c.Redis.Prefix == "" {
			return fmt.Errorf("%w: redis.prefix is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	return nil
}

// Save writes config to the JSON file.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}
