package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxResults is how many song cards are ever shown for one search.
const MaxResults = 50

const (
	wrapperTypeTrack = "track"
	kindSong         = "song"
)

// ErrMalformed is returned when a response body cannot be decoded.
var ErrMalformed = errors.New("malformed catalog response")

// StatusError is returned for non-success HTTP responses.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned HTTP %d (%s)", e.StatusCode, e.Status)
}

// Response is the decoded body of a search request.
type Response struct {
	ResultCount int     `json:"resultCount"`
	Results     []Track `json:"results"`
}

// Track is one element of the results array. Only the fields the player
// uses are decoded.
type Track struct {
	WrapperType      string    `json:"wrapperType"`
	Kind             string    `json:"kind"`
	TrackID          int64     `json:"trackId"`
	TrackName        string    `json:"trackName"`
	ArtistName       string    `json:"artistName"`
	CollectionName   string    `json:"collectionName"`
	ReleaseDate      string    `json:"releaseDate"`
	ArtworkURL100    string    `json:"artworkUrl100"`
	PreviewURL       string    `json:"previewUrl"`
	TrackViewURL     string    `json:"trackViewUrl"`
	TrackTimeMillis  int64     `json:"trackTimeMillis"`
	PrimaryGenreName string    `json:"primaryGenreName"`
}

// IsSong reports whether the result is an individual song track.
func (t Track) IsSong() bool {
	return t.WrapperType == wrapperTypeTrack && t.Kind == kindSong
}

// releaseLayouts are the date forms seen in releaseDate, most common first.
var releaseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Released parses ReleaseDate. It reports false when the date is missing or
// in a form it does not know.
func (t Track) Released() (time.Time, bool) {
	s := strings.TrimSpace(t.ReleaseDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Duration returns the full track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.TrackTimeMillis) * time.Millisecond
}

// Songs returns the song tracks in results, in their original order,
// capped at limit. A non-positive limit means MaxResults.
func Songs(results []Track, limit int) []Track {
	if limit <= 0 {
		limit = MaxResults
	}

	out := make([]Track, 0, min(len(results), limit))
	for _, t := range results {
		if len(out) == limit {
			break
		}
		if t.IsSong() {
			out = append(out, t)
		}
	}
	return out
}
