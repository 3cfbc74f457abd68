package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New("debug", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("result stored")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log line in file")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty", ""); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
