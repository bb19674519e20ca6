package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/songsnip/internal/catalog"
	"github.com/dgnsrekt/songsnip/internal/search"
)

func song(id int64, name string) catalog.Track {
	return catalog.Track{
		WrapperType: "track",
		Kind:        "song",
		TrackID:     id,
		TrackName:   name,
		ArtistName:  "Artist " + name,
		PreviewURL:  "https://audio.test/" + name + ".m4a",
	}
}

// settledEntry runs one fetch through a real cache and returns the entry.
func settledEntry(t *testing.T, resp *catalog.Response, err error) searchEntry {
	t.Helper()

	c := search.New[*catalog.Response](search.FetchFunc[*catalog.Response](
		func(context.Context, string) (*catalog.Response, error) {
			return resp, err
		}), search.DefaultOptions())
	t.Cleanup(func() { _ = c.Close() })

	ch := make(chan searchEntry, 1)
	c.Submit("https://itunes.test/search?term=x", func(e searchEntry) { ch <- e })

	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("entry never settled")
		return nil
	}
}

func TestRenderOutcome_Failure(t *testing.T) {
	e := settledEntry(t, nil, errors.New("boom"))

	v := renderOutcome(e, "anything")
	if !v.failed {
		t.Error("expected failed view")
	}
	if v.message != "Couldn't get search results - try again later!" {
		t.Errorf("message = %q", v.message)
	}
}

func TestRenderOutcome_ZeroResults(t *testing.T) {
	e := settledEntry(t, &catalog.Response{Results: []catalog.Track{
		{WrapperType: "track", Kind: "music-video", TrackID: 9},
	}}, nil)

	v := renderOutcome(e, "zzqx")
	if v.failed {
		t.Error("zero results is not a failure")
	}
	if v.message != `Zero results found for "zzqx".` {
		t.Errorf("message = %q", v.message)
	}
	if len(v.tracks) != 0 {
		t.Errorf("tracks = %v", v.tracks)
	}
}

func TestRenderOutcome_CapsAndFilters(t *testing.T) {
	var results []catalog.Track
	for i := 1; i <= 80; i++ {
		results = append(results, song(int64(i), "s"))
	}
	results = append([]catalog.Track{{WrapperType: "collection", Kind: "song", TrackID: 999}}, results...)

	v := renderOutcome(settledEntry(t, &catalog.Response{Results: results}, nil), "s")
	if len(v.tracks) != catalog.MaxResults {
		t.Fatalf("len = %d, want %d", len(v.tracks), catalog.MaxResults)
	}
	if v.tracks[0].TrackID != 1 {
		t.Errorf("first track = %d, want 1", v.tracks[0].TrackID)
	}
	if v.message != "" {
		t.Errorf("unexpected message %q", v.message)
	}
}

func TestCardList_FailureKeepsCards(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a"), song(2, "b")}})
	l.apply(resultsView{failed: true, message: failedSearchMessage})

	if len(l.cards) != 2 {
		t.Errorf("cards = %d, want 2", len(l.cards))
	}
	if l.banner != failedSearchMessage {
		t.Errorf("banner = %q", l.banner)
	}

	// A later success clears the banner.
	l.apply(resultsView{tracks: []catalog.Track{song(3, "c")}})
	if l.banner != "" {
		t.Errorf("banner = %q after success", l.banner)
	}
}

func TestCardList_PlayToggles(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a"), song(2, "b")}})

	if _, action := l.play(0); action != actionLoad {
		t.Fatalf("first play = %v, want load", action)
	}
	if _, action := l.play(0); action != actionPause {
		t.Fatalf("second play = %v, want pause", action)
	}
	if _, action := l.play(0); action != actionResume {
		t.Fatalf("third play = %v, want resume", action)
	}

	tr, action := l.play(1)
	if action != actionLoad || tr.TrackID != 2 {
		t.Fatalf("other card = %v %d, want load 2", action, tr.TrackID)
	}
	if l.selectedID != 2 || l.paused {
		t.Errorf("selected = %d paused = %v", l.selectedID, l.paused)
	}

	if _, action := l.play(7); action != actionNone {
		t.Errorf("out of range play = %v", action)
	}
}

func TestCardList_EndedMarksPaused(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a")}})
	l.play(0)

	l.ended()
	if !l.paused {
		t.Error("ended card should be paused")
	}

	// Playing it again resumes.
	if _, action := l.play(0); action != actionResume {
		t.Errorf("play after end = %v, want resume", action)
	}
}

func TestCardList_PinsPlayingCard(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a"), song(2, "b")}})
	l.play(1) // track 2 playing

	l.apply(resultsView{tracks: []catalog.Track{song(3, "c"), song(4, "d")}})

	if len(l.cards) != 3 || l.cards[0].TrackID != 2 {
		t.Fatalf("cards = %v, want playing card pinned first", ids(l.cards))
	}
	if l.pinnedID != 2 || l.selectedID != 2 {
		t.Errorf("pinned = %d selected = %d", l.pinnedID, l.selectedID)
	}

	// Toggling the pinned card keeps it.
	if _, action := l.play(0); action != actionPause {
		t.Errorf("pinned toggle = %v, want pause", action)
	}
	if len(l.cards) != 3 {
		t.Errorf("pinned card dropped on its own toggle")
	}

	// Playing another card drops it.
	tr, action := l.play(2)
	if action != actionLoad || tr.TrackID != 4 {
		t.Fatalf("play = %v %d, want load 4", action, tr.TrackID)
	}
	if got := ids(l.cards); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("cards = %v, want [3 4]", got)
	}
	if l.pinnedID != 0 {
		t.Errorf("pinned = %d", l.pinnedID)
	}
}

func TestCardList_PlayingCardInNewResults(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a")}})
	l.play(0)

	l.apply(resultsView{tracks: []catalog.Track{song(5, "e"), song(1, "a")}})

	if got := ids(l.cards); len(got) != 2 || got[0] != 5 || got[1] != 1 {
		t.Errorf("cards = %v, want natural order [5 1]", got)
	}
	if l.pinnedID != 0 {
		t.Errorf("pinned = %d, want none", l.pinnedID)
	}
	if l.selectedID != 1 {
		t.Errorf("selected = %d, want 1", l.selectedID)
	}
}

func TestCardList_PausedCardDoesNotSurvive(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a")}})
	l.play(0)
	l.play(0) // pause

	l.apply(resultsView{tracks: []catalog.Track{song(1, "a")}})

	if l.selectedID != 0 {
		t.Errorf("selected = %d, want cleared", l.selectedID)
	}
	if _, action := l.play(0); action != actionLoad {
		t.Errorf("play = %v, want a fresh load", action)
	}
}

func TestCardList_ZeroResultsKeepsPlayingCard(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a")}})
	l.play(0)

	l.apply(resultsView{message: zeroResultsMessage("nope")})

	if got := ids(l.cards); len(got) != 1 || got[0] != 1 {
		t.Errorf("cards = %v, want the playing card", got)
	}
	if !strings.Contains(l.banner, "nope") {
		t.Errorf("banner = %q", l.banner)
	}
}

func TestCardList_Filter(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{
		song(1, "Yellow Submarine"),
		song(2, "Blackbird"),
		song(3, "Yesterday"),
	}})

	l.setFilter("yel")
	if len(l.visible) == 0 {
		t.Fatal("expected matches")
	}
	if cur, _ := l.current(); cur.TrackID != 1 {
		t.Errorf("best match = %d, want 1", cur.TrackID)
	}

	l.setFilter("")
	if len(l.visible) != 3 {
		t.Errorf("visible = %d after clearing filter", len(l.visible))
	}
}

func TestCardList_Cursor(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "a"), song(2, "b")}})

	l.moveUp()
	if l.cursor != 0 {
		t.Errorf("cursor = %d", l.cursor)
	}
	l.moveDown()
	l.moveDown()
	if l.cursor != 1 {
		t.Errorf("cursor = %d, want 1", l.cursor)
	}
}

func TestCardList_View(t *testing.T) {
	var l cardList
	l.apply(resultsView{tracks: []catalog.Track{song(1, "alpha"), song(2, "beta")}})
	l.play(0)

	out := l.view(60, 12, true)
	for _, want := range []string{"alpha", "beta", "by Artist alpha", "▶"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n") + 1; n != 12 {
		t.Errorf("view has %d lines, want 12", n)
	}
}

func ids(tracks []catalog.Track) []int64 {
	out := make([]int64, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.TrackID)
	}
	return out
}
