package prefs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpen_MissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := s.Get(KeyUserStyle); ok {
		t.Error("empty store should not have a user style")
	}
	if len(s.Values()) != 0 {
		t.Errorf("Values = %v", s.Values())
	}
}

func TestSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set(KeyUserStyle, "light"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if !strings.Contains(string(data), "user-style: light") {
		t.Errorf("unexpected file contents %q", data)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if v, _ := reopened.Get(KeyUserStyle); v != "light" {
		t.Errorf("user-style = %q, want light", v)
	}

	// No temp files are left behind.
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestOpen_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("user-style: [dark"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set(KeyUserStyle, "dark"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	changed, err := s.Reload()
	if err != nil || changed {
		t.Errorf("Reload() = %v, %v; want false, nil", changed, err)
	}

	if err := os.WriteFile(path, []byte("user-style: light\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changed, err = s.Reload()
	if err != nil || !changed {
		t.Errorf("Reload() = %v, %v; want true, nil", changed, err)
	}
	if v, _ := s.Get(KeyUserStyle); v != "light" {
		t.Errorf("user-style = %q after reload", v)
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("user-style: light\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case values := <-ch:
		if values[KeyUserStyle] != "light" {
			t.Errorf("watched values = %v", values)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change observed")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			// a second write event may still be queued
			for range ch {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
