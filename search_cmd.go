package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/songsnip/internal/catalog"
)

var (
	searchJSON bool

	searchCmd = &cobra.Command{
		Use:     "search TERM",
		Short:   "Print the songs matching a search term",
		Long:    paragraph(fmt.Sprintf("\n%s the catalog once and print the matching songs, without the interactive player.", keyword("Search"))),
		Example: paragraph("songsnip search daft punk\nsongsnip search --json abba | jq '.[].previewUrl'"),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
)

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the songs as JSON")
}

// Column widths of the plain listing.
const (
	nameColumn   = 32
	artistColumn = 24
	albumColumn  = 28
)

func runSearch(ctx context.Context, term string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, cache := newCatalog()
	defer cache.Close() //nolint:errcheck

	key := client.SearchURL(term)
	if key == "" {
		return errors.New("search term is empty")
	}

	entry, _ := cache.Submit(key, nil)
	resp, err := entry.Wait(ctx)
	if err != nil {
		return fmt.Errorf("unable to search for %q: %w", term, err)
	}

	songs := catalog.Songs(resp.Results, catalog.MaxResults)
	if searchJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(songs); err != nil {
			return fmt.Errorf("unable to write results: %w", err)
		}
		return nil
	}

	if len(songs) == 0 {
		_, err := fmt.Fprintf(w, "Zero results found for %q.\n", strings.TrimSpace(term))
		return err
	}
	return printSongs(w, songs, time.Now())
}

func printSongs(w io.Writer, songs []catalog.Track, now time.Time) error {
	for _, s := range songs {
		released := ""
		if d, ok := s.Released(); ok {
			released = humanize.RelTime(d, now, "ago", "from now")
		}
		line := fmt.Sprintf("%s  %s  %s  %s",
			column(s.TrackName, nameColumn),
			column(s.ArtistName, artistColumn),
			column(s.CollectionName, albumColumn),
			released,
		)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("unable to write results: %w", err)
		}
	}
	return nil
}

// column truncates s to width cells and pads it on the right.
func column(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
