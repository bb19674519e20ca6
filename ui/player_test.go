package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/songsnip/internal/audio"
)

// fakeLoader returns silent PCM of a fixed length.
type fakeLoader struct {
	length time.Duration
	err    error
	urls   []string
}

func (f *fakeLoader) Load(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	cfg := audio.DefaultPlayerConfig()
	return make([]byte, cfg.OffsetOf(f.length)), nil
}

func newTestPlayback() (*playback, *audio.MockPlayer, *fakeLoader) {
	player := audio.DefaultMockPlayer()
	loader := &fakeLoader{length: 30 * time.Second}
	return &playback{player: player, loader: loader}, player, loader
}

func TestPlayback_LoadAndPlay(t *testing.T) {
	p, player, loader := newTestPlayback()
	defer player.Close()

	cmd := p.load(song(1, "a"))
	if p.loading != 1 {
		t.Errorf("loading = %d, want 1", p.loading)
	}

	msg, ok := cmd().(previewLoadedMsg)
	if !ok {
		t.Fatal("load command did not return previewLoadedMsg")
	}
	if len(loader.urls) != 1 || loader.urls[0] != "https://audio.test/a.m4a" {
		t.Errorf("urls = %v", loader.urls)
	}

	if _, err := p.loaded(msg, false); err != nil {
		t.Fatalf("loaded failed: %v", err)
	}
	if player.State() != audio.StatePlaying {
		t.Errorf("state = %v, want playing", player.State())
	}
	if p.loading != 0 {
		t.Errorf("loading = %d after load", p.loading)
	}
}

func TestPlayback_PausedWhileLoading(t *testing.T) {
	p, player, _ := newTestPlayback()
	defer player.Close()

	msg := p.load(song(1, "a"))().(previewLoadedMsg)
	if _, err := p.loaded(msg, true); err != nil {
		t.Fatalf("loaded failed: %v", err)
	}
	if player.State() != audio.StatePaused {
		t.Errorf("state = %v, want paused", player.State())
	}
}

func TestPlayback_StaleLoadIgnored(t *testing.T) {
	p, player, _ := newTestPlayback()
	defer player.Close()

	first := p.load(song(1, "a"))().(previewLoadedMsg)
	p.load(song(2, "b"))

	cmd, err := p.loaded(first, false)
	if cmd != nil || err != nil {
		t.Errorf("stale load returned %v, %v", cmd, err)
	}
	if player.State() != audio.StateStopped {
		t.Errorf("state = %v, want stopped", player.State())
	}
}

func TestPlayback_LoadError(t *testing.T) {
	p, player, loader := newTestPlayback()
	defer player.Close()

	loader.err = errors.New("offline")
	msg := p.load(song(1, "a"))().(previewLoadedMsg)

	if _, err := p.loaded(msg, false); err == nil {
		t.Error("expected load error")
	}
}

func TestPlayback_EndedFor(t *testing.T) {
	p, player, _ := newTestPlayback()
	defer player.Close()

	msg := p.load(song(1, "a"))().(previewLoadedMsg)
	if _, err := p.loaded(msg, false); err != nil {
		t.Fatalf("loaded failed: %v", err)
	}

	wait := p.waitForEnd()
	player.Finish()

	ended, ok := wait().(playbackEndedMsg)
	if !ok {
		t.Fatal("waitForEnd did not return playbackEndedMsg")
	}
	if !p.endedFor(ended) {
		t.Error("natural end not recognised")
	}

	// Loading something else makes the old end message stale.
	p.load(song(2, "b"))
	if p.endedFor(ended) {
		t.Error("end of an older preview was accepted")
	}
}

func TestPlayback_Seek(t *testing.T) {
	p, player, _ := newTestPlayback()
	defer player.Close()

	msg := p.load(song(1, "a"))().(previewLoadedMsg)
	if _, err := p.loaded(msg, false); err != nil {
		t.Fatalf("loaded failed: %v", err)
	}
	p.pause()

	p.seekFraction(0.5)
	if got := player.Position(); got != 15*time.Second {
		t.Errorf("position = %v, want 15s", got)
	}

	p.seek(seekStep)
	if got := player.Position(); got != 20*time.Second {
		t.Errorf("position = %v, want 20s", got)
	}

	p.seek(-time.Minute)
	if got := player.Position(); got != 0 {
		t.Errorf("position = %v, want 0", got)
	}
}

func TestPlayback_TickStopsWhenIdle(t *testing.T) {
	p, player, _ := newTestPlayback()
	defer player.Close()

	if cmd := p.tick(); cmd == nil {
		t.Fatal("first tick should schedule")
	}
	if cmd := p.tick(); cmd != nil {
		t.Error("second tick should not double schedule")
	}
	if cmd := p.onTick(); cmd != nil {
		t.Error("tick loop should stop when nothing plays")
	}
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(15*time.Second, 30*time.Second, 10)
	if got := strings.Count(bar, "█"); got != 5 {
		t.Errorf("filled = %d, want 5", got)
	}
	if got := strings.Count(bar, "░"); got != 5 {
		t.Errorf("empty = %d, want 5", got)
	}

	if got := strings.Count(progressBar(time.Hour, 30*time.Second, 10), "█"); got != 10 {
		t.Errorf("overflow filled = %d, want 10", got)
	}
	if got := strings.Count(progressBar(0, 0, 4), "░"); got != 4 {
		t.Errorf("zero duration empty = %d, want 4", got)
	}
	if progressBar(time.Second, time.Second, 0) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Second, "0:05"},
		{29*time.Second + 600*time.Millisecond, "0:30"},
		{3*time.Minute + 7*time.Second, "3:07"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
