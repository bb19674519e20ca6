package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/songsnip/internal/catalog"
)

func TestDefaultConfigIsValidYAML(t *testing.T) {
	var cfg struct {
		Theme  string `yaml:"theme"`
		Search struct {
			Limit          int    `yaml:"limit"`
			RequestTimeout string `yaml:"request_timeout"`
			Freshness      string `yaml:"freshness"`
		} `yaml:"search"`
		Preview struct {
			CacheSize int `yaml:"cache_size_mb"`
		} `yaml:"preview"`
	}
	if err := yaml.Unmarshal([]byte(defaultConfig), &cfg); err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}

	if cfg.Theme != "auto" {
		t.Errorf("theme = %q", cfg.Theme)
	}
	if cfg.Search.Limit != catalog.MaxResults {
		t.Errorf("limit = %d", cfg.Search.Limit)
	}
	for _, d := range []string{cfg.Search.RequestTimeout, cfg.Search.Freshness} {
		if _, err := time.ParseDuration(d); err != nil {
			t.Errorf("bad duration %q: %v", d, err)
		}
	}
	if cfg.Preview.CacheSize != 64 {
		t.Errorf("cache_size_mb = %d", cfg.Preview.CacheSize)
	}
}

func TestColumn(t *testing.T) {
	tests := []struct {
		in    string
		width int
	}{
		{"short", 10},
		{"exactly ten", 11},
		{"a much longer song title than fits", 12},
		{"東京フラッシュ東京フラッシュ", 8},
	}

	for _, tt := range tests {
		got := column(tt.in, tt.width)
		if w := runewidth.StringWidth(got); w != tt.width {
			t.Errorf("column(%q, %d) is %d cells wide: %q", tt.in, tt.width, w, got)
		}
	}
}

func TestPrintSongs(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	songs := []catalog.Track{
		{TrackName: "Yesterday", ArtistName: "The Beatles", CollectionName: "Help!", ReleaseDate: now.AddDate(-10, 0, 0).Format(time.RFC3339)},
		{TrackName: "Untitled", ArtistName: "Nobody"},
	}

	var b bytes.Buffer
	if err := printSongs(&b, songs, now); err != nil {
		t.Fatalf("printSongs failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Yesterday") || !strings.Contains(lines[0], "The Beatles") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], "10 years ago") {
		t.Errorf("line 0 missing release age: %q", lines[0])
	}
	if strings.HasSuffix(lines[1], " ") {
		t.Errorf("line 1 has trailing space: %q", lines[1])
	}
}
