package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte(`color = "#111111"`), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	initial, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(initial)

	w, err := NewWatcher(loader, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`color = "#222222"`), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool {
		return store.Current().Color == "#222222"
	}) {
		t.Errorf("store color = %q, reload never landed", store.Current().Color)
	}
}

func TestWatcherKeepsCurrentOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte(`color = "#111111"`), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	initial, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(initial)

	w, err := NewWatcher(loader, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`color = "#garbage"`), 0o644); err != nil {
		t.Fatal(err)
	}

	// Give the debounce and reload a chance to run, then confirm the
	// bad file was rejected.
	time.Sleep(500 * time.Millisecond)
	if got := store.Current().Color; got != "#111111" {
		t.Errorf("store color = %q, bad file replaced settings", got)
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	loader := NewLoader(path)
	store := NewStore(Default())

	w, err := NewWatcher(loader, store, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
