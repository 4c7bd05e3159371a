package logutil

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"newlines", "a\nb\r\nc", `a\nb\n\nc`},
		{"tab", "a\tb", `a\tb`},
		{"control", "a\x07b", "a?b"},
		{"truncated", strings.Repeat("x", 150), strings.Repeat("x", 100) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeKeepsRunesWhole(t *testing.T) {
	in := strings.Repeat("a", 99) + "é" + "tail"
	got := Sanitize(in)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation, got %q", got)
	}
	if strings.ContainsRune(got, '�') {
		t.Fatalf("truncation split a rune: %q", got)
	}
}

func TestSetupInWritesFile(t *testing.T) {
	dir := t.TempDir()
	prev := log.Writer()
	defer log.SetOutput(prev)

	SetupIn(dir, true)
	log.Printf("hello from test")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logFileName)
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	rotateIfNeeded(path, maxSizeBytes)

	if _, err := os.Stat(archiveName(path, 1)); err != nil {
		t.Fatalf("expected archive .1: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected base log to be moved, stat err=%v", err)
	}
}
