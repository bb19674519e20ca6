package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// monitorInterval is how often the player checks for the end of a preview.
const monitorInterval = 50 * time.Millisecond

// Player plays PCM previews through the system audio device.
//
// oto allows a single context per process, so a program creates one Player
// and reuses it for every preview.
type Player struct {
	config  PlayerConfig
	context *oto.Context

	mu     sync.Mutex
	state  PlayerState
	player *oto.Player
	// data is kept referenced for as long as oto may read from it.
	data   []byte
	reader *bytes.Reader
	head   playhead
	volume float64
	done   chan struct{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// NewPlayer opens the audio device with the given configuration.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.DurationOf(config.BufferSize),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	p := &Player{
		config:  config,
		context: ctx,
		state:   StateStopped,
		volume:  1.0,
		done:    closedChan(),
		quit:    make(chan struct{}),
	}

	p.wg.Add(1)
	go p.monitor()

	return p, nil
}

// Config returns the PCM format the player expects.
func (p *Player) Config() PlayerConfig {
	return p.config
}

// Play replaces whatever is loaded with pcm and starts it from the
// beginning.
func (p *Player) Play(pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return ErrClosed
	}
	p.releaseLocked()

	p.data = pcm
	p.reader = bytes.NewReader(pcm)
	p.player = p.context.NewPlayer(p.reader)
	p.player.SetVolume(p.volume)
	p.head = newPlayhead(p.config.DurationOf(len(pcm)), nil)
	p.done = make(chan struct{})

	p.player.Play()
	p.head.start()
	p.state = StatePlaying

	log.Debug("playback started", "bytes", len(pcm), "duration", p.head.duration)
	return nil
}

// Pause pauses playback, keeping the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", p.state)
	}

	p.player.Pause()
	p.head.stop()
	p.state = StatePaused
	return nil
}

// Resume continues paused playback. A preview that has reached its end
// starts over.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", p.state)
	}

	if p.head.finished() {
		if err := p.seekLocked(0); err != nil {
			return err
		}
	}

	p.player.Play()
	p.head.start()
	p.state = StatePlaying
	return nil
}

// Stop stops playback and unloads the audio.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateClosed {
		return nil
	}
	p.releaseLocked()
	p.state = StateStopped
	return nil
}

// Seek moves the playhead to pos, clamped to the loaded audio.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying && p.state != StatePaused {
		return ErrNotLoaded
	}
	return p.seekLocked(pos)
}

func (p *Player) seekLocked(pos time.Duration) error {
	pos = clampPosition(pos, p.head.duration)

	if _, err := p.player.Seek(p.config.OffsetOf(pos), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	p.head.seek(pos)

	if pos < p.head.duration {
		p.rearmLocked()
	}
	return nil
}

// rearmLocked replaces a done channel that has already fired.
func (p *Player) rearmLocked() {
	select {
	case <-p.done:
		p.done = make(chan struct{})
	default:
	}
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateStopped || p.state == StateClosed {
		return 0
	}
	return p.head.position()
}

// Duration returns the length of the loaded audio.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateStopped || p.state == StateClosed {
		return 0
	}
	return p.head.duration
}

// State returns the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done returns a channel closed when the loaded audio plays to its end or
// is unloaded by Stop, Play or Close.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	return nil
}

// Volume returns the playback volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Close stops playback and shuts down the monitor. The oto context stays
// alive until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	if p.state == StateClosed {
		p.mu.Unlock()
		return nil
	}
	p.releaseLocked()
	p.state = StateClosed
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
	return nil
}

// releaseLocked closes the oto player and fires a pending done channel.
func (p *Player) releaseLocked() {
	if p.player != nil {
		p.player.Pause()
		if err := p.player.Close(); err != nil {
			log.Debug("closing oto player", "error", err)
		}
		p.player = nil
	}
	p.data = nil
	p.reader = nil
	p.head = playhead{}

	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// monitor detects the natural end of playback. oto reports IsPlaying false
// once its buffer drains after the reader is exhausted.
func (p *Player) monitor() {
	defer p.wg.Done()

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.quit:
			return
		case <-ticker.C:
			p.checkEnded()
		}
	}
}

func (p *Player) checkEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying || p.player == nil || p.player.IsPlaying() {
		return
	}

	if err := p.player.Err(); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("playback error", "error", err)
	}

	p.head.stop()
	p.head.seek(p.head.duration)
	p.state = StatePaused
	close(p.done)

	log.Debug("playback ended", "duration", p.head.duration)
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
