package audio

import "time"

// playhead tracks playback position from wall time. Callers hold the
// owning player's lock.
type playhead struct {
	duration  time.Duration
	base      time.Duration // position at the last start, pause or seek
	startedAt time.Time
	running   bool
	now       func() time.Time
}

func newPlayhead(duration time.Duration, now func() time.Time) playhead {
	if now == nil {
		now = time.Now
	}
	return playhead{duration: duration, now: now}
}

func (h *playhead) position() time.Duration {
	pos := h.base
	if h.running {
		pos += h.now().Sub(h.startedAt)
	}
	return clampPosition(pos, h.duration)
}

func (h *playhead) start() {
	if h.running {
		return
	}
	h.startedAt = h.now()
	h.running = true
}

func (h *playhead) stop() {
	if !h.running {
		return
	}
	h.base = h.position()
	h.running = false
}

func (h *playhead) seek(pos time.Duration) {
	h.base = clampPosition(pos, h.duration)
	h.startedAt = h.now()
}

func (h *playhead) finished() bool {
	return h.duration > 0 && h.position() >= h.duration
}
