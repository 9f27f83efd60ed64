package logger_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nikbrunner/quickmark/internal/logger"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		log, err := logger.New(level, false)
		if err != nil {
			t.Fatalf("level %q: unexpected error: %v", level, err)
		}
		log.Info("hello")
	}
}

func TestFromZap_WritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.FromZap(zap.New(core))

	log.Warn("corrupt state",
		logger.String("key", "bookmarks"),
		logger.Int("bytes", 12),
		logger.Error(errors.New("boom")),
	)

	entries := logs.FilterMessage("corrupt state").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["key"] != "bookmarks" {
		t.Errorf("expected key field, got %v", fields["key"])
	}
	if fields["error"] != "boom" {
		t.Errorf("expected error field, got %v", fields["error"])
	}
}

func TestNewNop(t *testing.T) {
	log := logger.NewNop()
	log.Errorf("ignored %d", 1)
	if err := log.Sync(); err != nil {
		t.Errorf("unexpected sync error: %v", err)
	}
}
