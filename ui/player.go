package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/songsnip/internal/audio"
	"github.com/dgnsrekt/songsnip/internal/catalog"
)

const (
	progressInterval = 250 * time.Millisecond
	seekStep         = 5 * time.Second
)

// PreviewLoader fetches and decodes the preview at url.
type PreviewLoader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

type (
	previewLoadedMsg struct {
		trackID int64
		gen     int
		pcm     []byte
		err     error
	}
	playbackEndedMsg struct{ gen int }
	progressTickMsg  struct{}
)

// playback drives the single shared audio output.
type playback struct {
	player audio.AudioPlayer
	loader PreviewLoader

	// gen changes with every load so that messages about an older preview
	// are ignored.
	gen     int
	loading int64
	cancel  context.CancelFunc
	track   catalog.Track
	ticking bool
}

// load stops whatever is playing and fetches track's preview.
func (p *playback) load(track catalog.Track) tea.Cmd {
	p.stop()

	p.gen++
	p.loading = track.TrackID
	p.track = track

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	gen, loader := p.gen, p.loader
	log.Debug("loading preview", "track", track.TrackName, "url", track.PreviewURL)

	return func() tea.Msg {
		pcm, err := loader.Load(ctx, track.PreviewURL)
		return previewLoadedMsg{trackID: track.TrackID, gen: gen, pcm: pcm, err: err}
	}
}

// loaded starts a finished load. It returns nil for a stale message.
func (p *playback) loaded(msg previewLoadedMsg, paused bool) (tea.Cmd, error) {
	if msg.gen != p.gen {
		return nil, nil
	}
	p.loading = 0
	p.cancel = nil

	if msg.err != nil {
		return nil, msg.err
	}

	if err := p.player.Play(msg.pcm); err != nil {
		return nil, fmt.Errorf("unable to play preview: %w", err)
	}
	if paused {
		_ = p.player.Pause()
	}
	return tea.Batch(p.waitForEnd(), p.tick()), nil
}

// discard drops a load result nobody is waiting for. A current load is
// marked finished so the footer stops showing it.
func (p *playback) discard(msg previewLoadedMsg) {
	if msg.gen != p.gen {
		return
	}
	p.loading = 0
	p.cancel = nil
}

// idle reports whether nothing is loaded or loading.
func (p *playback) idle() bool {
	if p.loading != 0 {
		return false
	}
	state := p.player.State()
	return state != audio.StatePlaying && state != audio.StatePaused
}

func (p *playback) pause() {
	if p.player.State() == audio.StatePlaying {
		if err := p.player.Pause(); err != nil {
			log.Debug("pause failed", "error", err)
		}
	}
}

func (p *playback) resume() tea.Cmd {
	if p.player.State() != audio.StatePaused {
		return nil
	}
	if err := p.player.Resume(); err != nil {
		log.Debug("resume failed", "error", err)
		return nil
	}
	return tea.Batch(p.waitForEnd(), p.tick())
}

func (p *playback) stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.loading = 0
	if err := p.player.Stop(); err != nil {
		log.Debug("stop failed", "error", err)
	}
}

// seek moves the playhead by delta.
func (p *playback) seek(delta time.Duration) tea.Cmd {
	return p.seekTo(p.player.Position() + delta)
}

// seekFraction jumps to a fraction of the preview.
func (p *playback) seekFraction(f float64) tea.Cmd {
	return p.seekTo(time.Duration(float64(p.player.Duration()) * f))
}

func (p *playback) seekTo(pos time.Duration) tea.Cmd {
	if err := p.player.Seek(pos); err != nil {
		log.Debug("seek failed", "error", err)
		return nil
	}
	// Seeking back from the end arms a new done channel.
	return p.waitForEnd()
}

func (p *playback) waitForEnd() tea.Cmd {
	done, gen := p.player.Done(), p.gen
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{gen: gen}
	}
}

// tick starts the progress refresh loop unless it is running.
func (p *playback) tick() tea.Cmd {
	if p.ticking {
		return nil
	}
	p.ticking = true
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

// onTick continues the refresh loop while audio is playing.
func (p *playback) onTick() tea.Cmd {
	p.ticking = false
	if p.player.State() != audio.StatePlaying {
		return nil
	}
	return p.tick()
}

// endedFor reports whether msg is the natural end of the current preview.
func (p *playback) endedFor(msg playbackEndedMsg) bool {
	return msg.gen == p.gen && p.player.State() == audio.StatePaused
}

func (p *playback) view(width int, paused bool) string {
	if p.loading != 0 {
		return subtleStyle.Render("Loading " + p.track.TrackName + ellipsis)
	}

	state := p.player.State()
	if state != audio.StatePlaying && state != audio.StatePaused {
		return ""
	}

	icon := playingStyle.Render("▶")
	if paused || state == audio.StatePaused {
		icon = pausedStyle.Render("⏸")
	}

	pos, dur := p.player.Position(), p.player.Duration()
	elapsed := formatClock(pos)
	total := formatClock(dur)

	barWidth := max(10, width-len(elapsed)-len(total)-6) //nolint:mnd
	return fmt.Sprintf("%s %s %s %s", icon, elapsed, progressBar(pos, dur, barWidth), total)
}

// progressBar renders a filled/empty bar of width cells.
func progressBar(pos, dur time.Duration, width int) string {
	if width <= 0 {
		return ""
	}

	var ratio float64
	if dur > 0 {
		ratio = float64(pos) / float64(dur)
	}
	ratio = min(1, max(0, ratio))

	filled := int(ratio * float64(width))
	return progressFilledStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// formatClock renders d as m:ss.
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60) //nolint:mnd
}
