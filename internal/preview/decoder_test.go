package preview

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFFmpegDecoder_Missing(t *testing.T) {
	d := NewFFmpegDecoder("/nonexistent/ffmpeg-songsnip", 44100, 2)

	if err := d.Check(); !errors.Is(err, ErrDecoderMissing) {
		t.Errorf("Check() = %v, want ErrDecoderMissing", err)
	}

	_, err := d.Decode(context.Background(), []byte("data"))
	if !errors.Is(err, ErrDecoderMissing) {
		t.Errorf("Decode() = %v, want ErrDecoderMissing", err)
	}
}

func TestFFmpegDecoder_Args(t *testing.T) {
	d := NewFFmpegDecoder("", 48000, 1)
	if d.Path != "ffmpeg" {
		t.Errorf("default path = %q", d.Path)
	}

	args := strings.Join(d.args("/tmp/in.m4a"), " ")
	for _, want := range []string{"-i /tmp/in.m4a", "-f s16le", "-ar 48000", "-ac 1", "pipe:1"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}
