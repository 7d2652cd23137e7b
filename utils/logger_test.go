package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	logger, err := NewLogger("debug", path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("tower started")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"tower started"`) || !strings.Contains(string(raw), `"service":"skyrush"`) {
		t.Errorf("unexpected log output: %s", raw)
	}
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	if _, err := NewLogger("loud", ""); err == nil {
		t.Error("expected error for unknown level")
	}
}
