package audio

import (
	"fmt"
	"sync"
	"time"
)

// MockPlayer simulates playback against the wall clock without an audio
// device. It is used in tests and when no device can be opened.
type MockPlayer struct {
	config PlayerConfig

	mu     sync.Mutex
	state  PlayerState
	head   playhead
	speed  float64
	volume float64
	done   chan struct{}
	timer  *time.Timer
	audio  []byte

	// Metrics for testing
	playCount   int
	pauseCount  int
	resumeCount int
	seekCount   int
	endCount    int
}

// MockPlayerMetrics contains playback metrics for testing.
type MockPlayerMetrics struct {
	PlayCount   int
	PauseCount  int
	ResumeCount int
	SeekCount   int
	EndCount    int
}

// NewMockPlayer creates a mock player for the given PCM format.
func NewMockPlayer(config PlayerConfig) *MockPlayer {
	return &MockPlayer{
		config: config,
		state:  StateStopped,
		speed:  1.0,
		volume: 1.0,
		done:   closedChan(),
	}
}

// DefaultMockPlayer creates a mock player with the default configuration.
func DefaultMockPlayer() *MockPlayer {
	return NewMockPlayer(DefaultPlayerConfig())
}

// SetSpeed makes simulated time run factor times faster than real time.
func (mp *MockPlayer) SetSpeed(factor float64) {
	if factor <= 0 {
		factor = 1.0
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.speed = factor
}

// clock returns simulated time, scaled by the speed factor from origin.
func (mp *MockPlayer) clock() func() time.Time {
	origin := time.Now()
	speed := mp.speed
	return func() time.Time {
		return origin.Add(time.Duration(float64(time.Since(origin)) * speed))
	}
}

// Play loads pcm and starts simulated playback.
func (mp *MockPlayer) Play(pcm []byte) error {
	if len(pcm) == 0 {
		return ErrEmptyAudio
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state == StateClosed {
		return ErrClosed
	}
	mp.releaseLocked()

	mp.audio = pcm
	mp.head = newPlayhead(mp.config.DurationOf(len(pcm)), mp.clock())
	mp.done = make(chan struct{})
	mp.head.start()
	mp.state = StatePlaying
	mp.playCount++
	mp.scheduleLocked()
	return nil
}

// Pause pauses simulated playback.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePlaying {
		return fmt.Errorf("cannot pause: player is %s", mp.state)
	}
	mp.cancelTimerLocked()
	mp.head.stop()
	mp.state = StatePaused
	mp.pauseCount++
	return nil
}

// Resume continues paused playback, starting over if the end was reached.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePaused {
		return fmt.Errorf("cannot resume: player is %s", mp.state)
	}
	mp.head.now = mp.clock()
	if mp.head.finished() {
		mp.seekLocked(0)
	}
	mp.head.start()
	mp.state = StatePlaying
	mp.resumeCount++
	mp.scheduleLocked()
	return nil
}

// Stop unloads the audio.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state == StateClosed {
		return nil
	}
	mp.releaseLocked()
	mp.state = StateStopped
	return nil
}

// Seek moves the simulated playhead.
func (mp *MockPlayer) Seek(pos time.Duration) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePlaying && mp.state != StatePaused {
		return ErrNotLoaded
	}
	mp.seekLocked(pos)
	mp.seekCount++
	if mp.state == StatePlaying {
		mp.scheduleLocked()
	}
	return nil
}

func (mp *MockPlayer) seekLocked(pos time.Duration) {
	mp.head.seek(pos)
	if mp.head.position() < mp.head.duration {
		select {
		case <-mp.done:
			mp.done = make(chan struct{})
		default:
		}
	}
}

// Finish jumps to the end of the audio as if it had played out.
func (mp *MockPlayer) Finish() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state != StatePlaying && mp.state != StatePaused {
		return
	}
	mp.endLocked()
}

// Position returns the simulated playback position.
func (mp *MockPlayer) Position() time.Duration {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state == StateStopped || mp.state == StateClosed {
		return 0
	}
	return mp.head.position()
}

// Duration returns the length of the loaded audio.
func (mp *MockPlayer) Duration() time.Duration {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.state == StateStopped || mp.state == StateClosed {
		return 0
	}
	return mp.head.duration
}

// State returns the current player state.
func (mp *MockPlayer) State() PlayerState {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.state
}

// Done returns a channel closed when the loaded audio ends or is unloaded.
func (mp *MockPlayer) Done() <-chan struct{} {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.done
}

// SetVolume sets the simulated volume (0.0 to 1.0).
func (mp *MockPlayer) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.volume = volume
	return nil
}

// Volume returns the simulated volume.
func (mp *MockPlayer) Volume() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.volume
}

// Close stops the player. Further calls to Play fail.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.releaseLocked()
	mp.state = StateClosed
	return nil
}

// GetMetrics returns playback metrics for testing.
func (mp *MockPlayer) GetMetrics() MockPlayerMetrics {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return MockPlayerMetrics{
		PlayCount:   mp.playCount,
		PauseCount:  mp.pauseCount,
		ResumeCount: mp.resumeCount,
		SeekCount:   mp.seekCount,
		EndCount:    mp.endCount,
	}
}

// Audio returns the PCM passed to the last Play.
func (mp *MockPlayer) Audio() []byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.audio
}

// scheduleLocked arms the timer that ends playback.
func (mp *MockPlayer) scheduleLocked() {
	mp.cancelTimerLocked()

	remaining := mp.head.duration - mp.head.position()
	wait := time.Duration(float64(remaining) / mp.speed)
	done := mp.done
	mp.timer = time.AfterFunc(wait, func() {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		// A stale timer from before a Play or Stop must not end the new audio.
		if mp.done != done || mp.state != StatePlaying {
			return
		}
		mp.endLocked()
	})
}

func (mp *MockPlayer) cancelTimerLocked() {
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
}

func (mp *MockPlayer) endLocked() {
	mp.cancelTimerLocked()
	mp.head.stop()
	mp.head.seek(mp.head.duration)
	mp.state = StatePaused
	mp.endCount++

	select {
	case <-mp.done:
	default:
		close(mp.done)
	}
}

func (mp *MockPlayer) releaseLocked() {
	mp.cancelTimerLocked()
	mp.head = playhead{}
	mp.audio = nil

	select {
	case <-mp.done:
	default:
		close(mp.done)
	}
}

var (
	_ AudioPlayer = (*Player)(nil)
	_ AudioPlayer = (*MockPlayer)(nil)
)
