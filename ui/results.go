package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/songsnip/internal/catalog"
	"github.com/dgnsrekt/songsnip/internal/search"
)

// searchEntry is a cache entry holding one catalog response.
type searchEntry = *search.Entry[*catalog.Response]

const failedSearchMessage = "Couldn't get search results - try again later!"

func zeroResultsMessage(term string) string {
	return fmt.Sprintf("Zero results found for %q.", term)
}

// resultsView is what a settled search contributes to the card list.
type resultsView struct {
	failed  bool
	message string
	tracks  []catalog.Track
}

// renderOutcome turns a settled entry into the view for term. A failed
// entry carries only the retry banner; the cards already on screen stay.
func renderOutcome(entry searchEntry, term string) resultsView {
	resp, ok := entry.Payload()
	if !ok || resp == nil {
		return resultsView{failed: true, message: failedSearchMessage}
	}

	tracks := catalog.Songs(resp.Results, catalog.MaxResults)
	if len(tracks) == 0 {
		return resultsView{message: zeroResultsMessage(term), tracks: tracks}
	}
	return resultsView{tracks: tracks}
}

// playAction is what the player must do after a card was chosen.
type playAction int

const (
	actionNone playAction = iota
	actionLoad
	actionPause
	actionResume
)

// cardList holds the displayed cards and which one owns the audio output.
//
// selectedID is the track loaded in the player; paused mirrors whether it
// is audible. pinnedID is a playing card that survived a search it was not
// part of; it goes away the next time another card is played.
type cardList struct {
	banner string
	cards  []catalog.Track
	cursor int

	selectedID int64
	paused     bool
	pinnedID   int64

	filter  string
	visible []int // indices into cards, in display order
}

// apply replaces the cards with a search outcome.
func (l *cardList) apply(v resultsView) {
	if v.failed {
		l.banner = v.message
		return
	}

	var cards []catalog.Track
	current, hasCurrent := l.selected()
	playing := hasCurrent && !l.paused

	l.pinnedID = 0
	if playing {
		if containsTrack(v.tracks, current.TrackID) {
			cards = make([]catalog.Track, 0, len(v.tracks))
		} else {
			cards = make([]catalog.Track, 0, len(v.tracks)+1)
			cards = append(cards, current)
			l.pinnedID = current.TrackID
		}
	} else {
		// A paused card does not survive a new search.
		l.deselect()
	}

	l.cards = append(cards, v.tracks...)
	l.banner = v.message
	l.cursor = 0
	l.filter = ""
	l.refilter()
}

// play applies the toggle rules to the card at display position i.
func (l *cardList) play(i int) (catalog.Track, playAction) {
	if i < 0 || i >= len(l.visible) {
		return catalog.Track{}, actionNone
	}
	card := l.cards[l.visible[i]]

	if l.pinnedID != 0 && card.TrackID != l.pinnedID {
		l.removeTrack(l.pinnedID)
		l.pinnedID = 0
	}

	if l.selectedID != 0 && card.TrackID == l.selectedID {
		if l.paused {
			l.paused = false
			return card, actionResume
		}
		l.paused = true
		return card, actionPause
	}

	l.selectedID = card.TrackID
	l.paused = false
	return card, actionLoad
}

// deselect releases the selected card, so playing it again starts over.
func (l *cardList) deselect() {
	l.selectedID = 0
	l.paused = false
}

// ended marks the selected card paused when its preview played out.
func (l *cardList) ended() {
	if l.selectedID != 0 {
		l.paused = true
	}
}

// selected returns the card owning the audio output, if it is displayed.
func (l *cardList) selected() (catalog.Track, bool) {
	if l.selectedID == 0 {
		return catalog.Track{}, false
	}
	for _, t := range l.cards {
		if t.TrackID == l.selectedID {
			return t, true
		}
	}
	return catalog.Track{}, false
}

// current returns the card under the cursor.
func (l *cardList) current() (catalog.Track, bool) {
	if l.cursor < 0 || l.cursor >= len(l.visible) {
		return catalog.Track{}, false
	}
	return l.cards[l.visible[l.cursor]], true
}

func (l *cardList) moveUp() {
	if l.cursor > 0 {
		l.cursor--
	}
}

func (l *cardList) moveDown() {
	if l.cursor < len(l.visible)-1 {
		l.cursor++
	}
}

// removeTrack drops a card, keeping the cursor on the same track where
// possible.
func (l *cardList) removeTrack(id int64) {
	cur, hasCur := l.current()
	for i, t := range l.cards {
		if t.TrackID == id {
			l.cards = append(l.cards[:i], l.cards[i+1:]...)
			break
		}
	}
	l.refilter()

	if hasCur {
		for i, idx := range l.visible {
			if l.cards[idx].TrackID == cur.TrackID {
				l.cursor = i
				return
			}
		}
	}
	l.clampCursor()
}

// setFilter fuzzy filters the displayed cards.
func (l *cardList) setFilter(term string) {
	l.filter = term
	l.refilter()
	l.cursor = 0
}

func (l *cardList) refilter() {
	l.visible = l.visible[:0]
	if strings.TrimSpace(l.filter) == "" {
		for i := range l.cards {
			l.visible = append(l.visible, i)
		}
		l.clampCursor()
		return
	}

	for _, m := range fuzzy.FindFrom(l.filter, trackSource(l.cards)) {
		l.visible = append(l.visible, m.Index)
	}
	l.clampCursor()
}

func (l *cardList) clampCursor() {
	if l.cursor >= len(l.visible) {
		l.cursor = len(l.visible) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

// trackSource adapts tracks to fuzzy.Source.
type trackSource []catalog.Track

func (s trackSource) String(i int) string {
	t := s[i]
	return t.TrackName + " " + t.ArtistName + " " + t.CollectionName
}

func (s trackSource) Len() int { return len(s) }

func containsTrack(tracks []catalog.Track, id int64) bool {
	for _, t := range tracks {
		if t.TrackID == id {
			return true
		}
	}
	return false
}

// view renders the banner and as many cards as fit in height lines,
// scrolled so the cursor stays visible.
func (l *cardList) view(width, height int, focused bool) string {
	var lines []string

	if l.banner != "" {
		lines = append(lines, bannerStyle.Render(truncate.StringWithTail(l.banner, uint(max(0, width)), ellipsis)), "") //nolint:gosec
	}

	if len(l.visible) == 0 {
		if l.filter != "" {
			lines = append(lines, subtleStyle.Render("  Nothing matches "+fmt.Sprintf("%q", l.filter)))
		}
		return padLines(lines, height)
	}

	perPage := max(1, (height-len(lines))/cardHeight)
	start := 0
	if l.cursor >= perPage {
		start = l.cursor - perPage + 1
	}
	end := min(len(l.visible), start+perPage)

	for i := start; i < end; i++ {
		t := l.cards[l.visible[i]]
		lines = append(lines, l.cardView(t, width, focused && i == l.cursor)...)
	}

	return padLines(lines, height)
}

func (l *cardList) cardView(t catalog.Track, width int, isCursor bool) []string {
	gutter := "  "
	titleStyle, artistStyle := cardTitleStyle, cardArtistStyle
	if isCursor {
		gutter = cursorBarStyle.Render("│") + " "
		titleStyle, artistStyle = cursorTitleStyle, cursorArtistStyle
	}

	var icon string
	switch {
	case t.TrackID == l.selectedID && l.paused:
		icon = pausedStyle.Render("⏸ ")
	case t.TrackID == l.selectedID:
		icon = playingStyle.Render("▶ ")
	default:
		icon = "  "
	}

	avail := uint(max(0, width-4)) //nolint:gosec,mnd
	title := truncate.StringWithTail(t.TrackName, avail, ellipsis)

	byline := "by " + t.ArtistName
	if t.CollectionName != "" {
		byline += " · " + t.CollectionName
	}
	if released, ok := t.Released(); ok {
		byline += fmt.Sprintf(" (%d)", released.Year())
	}
	byline = truncate.StringWithTail(byline, avail, ellipsis)

	if t.TrackID == l.pinnedID {
		note := " · from earlier search"
		if runewidth.StringWidth(byline)+runewidth.StringWidth(note) <= int(avail) {
			byline = artistStyle.Render(byline) + pinnedStyle.Render(note)
		} else {
			byline = artistStyle.Render(byline)
		}
	} else {
		byline = artistStyle.Render(byline)
	}

	return []string{
		gutter + icon + titleStyle.Render(title),
		gutter + "  " + byline,
		"",
	}
}

func padLines(lines []string, height int) string {
	for len(lines) < height {
		lines = append(lines, "")
	}
	if height > 0 && len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
