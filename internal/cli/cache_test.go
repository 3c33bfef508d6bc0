package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(xdg, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheDirHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if !strings.HasSuffix(dir, filepath.Join(".cache", "packmesh")) {
		t.Errorf("cacheDir() = %q, should end with .cache/packmesh", dir)
	}
}

func TestCacheCommands(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)
	dir := filepath.Join(xdg, appName)

	buf := captureOutput(t)
	if err := execute(t, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}

	buf.Reset()
	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Cache is empty") {
		t.Errorf("clear on a missing dir printed %q", buf.String())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	buf.Reset()
	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Cleared 2 cached entries") {
		t.Errorf("clear printed %q", buf.String())
	}
}

// captureOutput redirects command output to a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })
	return &buf
}
