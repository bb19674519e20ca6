package audio

import (
	"errors"
	"fmt"
	"time"
)

// PlayerState represents the current state of the player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StatePaused
	StateClosed
)

// String returns the string representation of the state.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Common player errors.
var (
	ErrEmptyAudio = errors.New("audio data is empty")
	ErrClosed     = errors.New("player is closed")
	ErrNotLoaded  = errors.New("no audio loaded")
)

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // Buffer size in bytes
}

// DefaultPlayerConfig returns the default player configuration. It matches
// the PCM the preview decoder produces.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100, // CD quality
		Channels:   2,     // Previews are stereo
		BitDepth:   16,
		BufferSize: 8192,
	}
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	// OTO only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// frameSize is the number of bytes in one sample across all channels.
func (c PlayerConfig) frameSize() int {
	return c.Channels * c.BitDepth / 8
}

// DurationOf returns the playback length of n bytes of PCM.
func (c PlayerConfig) DurationOf(n int) time.Duration {
	frames := n / c.frameSize()
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// OffsetOf returns the frame-aligned byte offset of position d.
func (c PlayerConfig) OffsetOf(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	frames := int64(d) * int64(c.SampleRate) / int64(time.Second)
	return frames * int64(c.frameSize())
}

// AudioPlayer is the playback surface the UI drives. Player and MockPlayer
// implement it.
type AudioPlayer interface {
	Play(pcm []byte) error
	Pause() error
	Resume() error
	Stop() error
	Seek(pos time.Duration) error
	Position() time.Duration
	Duration() time.Duration
	State() PlayerState
	// Done is closed when the loaded audio reaches its end or is
	// unloaded. A seek back from the end arms a new channel.
	Done() <-chan struct{}
	SetVolume(volume float64) error
	Close() error
}

// clampPosition keeps a seek target inside [0, duration].
func clampPosition(pos, duration time.Duration) time.Duration {
	if pos < 0 {
		return 0
	}
	if pos > duration {
		return duration
	}
	return pos
}
