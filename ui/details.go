package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/songsnip/internal/catalog"
	"github.com/dgnsrekt/songsnip/internal/preview"
	"github.com/dgnsrekt/songsnip/internal/search"
)

// storeStatter is implemented by loaders that keep a preview store.
type storeStatter interface {
	Stats() preview.StoreStats
}

// detailsMarkdown describes a track and the caches behind the session.
func detailsMarkdown(t catalog.Track, cacheStats search.Stats, store *preview.StoreStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(t.TrackName))
	fmt.Fprintf(&b, "by **%s**", escapeMarkdown(t.ArtistName))
	if t.CollectionName != "" {
		fmt.Fprintf(&b, " on *%s*", escapeMarkdown(t.CollectionName))
	}
	b.WriteString("\n\n")

	b.WriteString("| | |\n|---|---|\n")
	if released, ok := t.Released(); ok {
		fmt.Fprintf(&b, "| Released | %s (%s) |\n",
			released.Format("January 2, 2006"), humanize.Time(released))
	}
	if t.PrimaryGenreName != "" {
		fmt.Fprintf(&b, "| Genre | %s |\n", escapeMarkdown(t.PrimaryGenreName))
	}
	if d := t.Duration(); d > 0 {
		fmt.Fprintf(&b, "| Length | %s |\n", formatClock(d))
	}
	fmt.Fprintf(&b, "| Track ID | %d |\n", t.TrackID)

	if t.TrackViewURL != "" {
		fmt.Fprintf(&b, "\n[Open in Apple Music](%s)\n", t.TrackViewURL)
	}

	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "Search cache: %s, %d fetches, %.0f%% hit rate\n\n",
		pluralize(cacheStats.Entries, "entry", "entries"),
		cacheStats.Fetches,
		cacheStats.HitRate()*100) //nolint:mnd
	if store != nil {
		fmt.Fprintf(&b, "Preview cache: %s of %s, %s\n",
			humanize.IBytes(uint64(store.Size)),     //nolint:gosec
			humanize.IBytes(uint64(store.Capacity)), //nolint:gosec
			pluralize(store.Items, "preview", "previews"))
	}

	return b.String()
}

// renderDetails renders markdown for the details pane.
func renderDetails(md string, width int, theme string, useGlamour bool) string {
	if !useGlamour {
		return md
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle(theme)),
		glamour.WithWordWrap(max(20, width)), //nolint:mnd
	)
	if err != nil {
		log.Error("error creating glamour renderer", "error", err)
		return md
	}

	out, err := r.Render(md)
	if err != nil {
		log.Error("error rendering details", "error", err)
		return md
	}
	return out
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `_`, `\_`, `|`, `\|`, "`", "\\`", `[`, `\[`, `]`, `\]`, `#`, `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), many)
}
