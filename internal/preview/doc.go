// Package preview downloads song previews and turns them into PCM for the
// audio player.
//
// Source bytes are kept in a size-bounded LRU store keyed by preview URL,
// concurrent loads of one URL share a single download, and decoding is
// delegated to an ffmpeg subprocess.
package preview
