package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(Options{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log line in file")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
