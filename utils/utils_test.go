package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}

	t.Setenv("SONGSNIP_TEST_DIR", "music")

	tests := []struct {
		in   string
		want string
	}{
		{"~/songsnip.yml", filepath.Join(home, "songsnip.yml")},
		{"/etc/$SONGSNIP_TEST_DIR/prefs.yml", "/etc/music/prefs.yml"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "prefs.yml")
	if err := EnsureDir(path); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if st, err := os.Stat(filepath.Dir(path)); err != nil || !st.IsDir() {
		t.Errorf("parent directory not created: %v", err)
	}
}
