// Package audio provides preview playback on the system audio device using
// the oto/v3 library. It plays decoded 16-bit PCM, and supports pause,
// resume, seeking and natural end notification.
package audio
