// Package search provides the request cache that sits between the UI and
// the song catalog. It coalesces concurrent submits for the same key into a
// single fetch, bounds every fetch with a request timeout, and replays
// successful results until they go stale. Failed results expire the moment
// they settle, so the next submit for that key always refetches.
package search
