package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrDecoderMissing is returned when the ffmpeg binary cannot be found.
var ErrDecoderMissing = errors.New("ffmpeg not found in PATH")

// Decoder turns a downloaded preview file into raw PCM.
type Decoder interface {
	Decode(ctx context.Context, src []byte) ([]byte, error)
}

// FFmpegDecoder decodes previews to signed 16-bit little-endian PCM by
// running ffmpeg.
type FFmpegDecoder struct {
	Path       string
	SampleRate int
	Channels   int
}

// NewFFmpegDecoder returns a decoder using the ffmpeg binary at path, or
// the one in PATH when path is empty.
func NewFFmpegDecoder(path string, sampleRate, channels int) *FFmpegDecoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegDecoder{Path: path, SampleRate: sampleRate, Channels: channels}
}

// Check verifies that the ffmpeg binary can be executed.
func (d *FFmpegDecoder) Check() error {
	if _, err := exec.LookPath(d.Path); err != nil {
		return fmt.Errorf("%w: %s", ErrDecoderMissing, d.Path)
	}
	return nil
}

// Decode writes src to a temporary file and converts it. MP4 containers may
// keep their index at the end of the file, so ffmpeg needs a seekable input
// rather than a pipe.
func (d *FFmpegDecoder) Decode(ctx context.Context, src []byte) ([]byte, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "songsnip-*.m4a")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(src); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.Path, d.args(tmp.Name())...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("decode cancelled: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, msg)
		}
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio")
	}
	return stdout.Bytes(), nil
}

func (d *FFmpegDecoder) args(input string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(d.SampleRate),
		"-ac", strconv.Itoa(d.Channels),
		"pipe:1",
	}
}
