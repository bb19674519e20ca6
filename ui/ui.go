// Package ui provides the interactive search and preview player.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/songsnip/internal/audio"
	"github.com/dgnsrekt/songsnip/internal/catalog"
	"github.com/dgnsrekt/songsnip/internal/prefs"
	"github.com/dgnsrekt/songsnip/internal/preview"
	"github.com/dgnsrekt/songsnip/internal/search"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"

	headerHeight = 2
	footerHeight = 3
	cardHeight   = 3
)

// KeyBuilder turns a search term into a cache key.
type KeyBuilder interface {
	SearchURL(term string) string
}

// Services are the collaborators the program drives.
type Services struct {
	Keys   KeyBuilder
	Cache  *search.Cache[*catalog.Response]
	Loader PreviewLoader
	Player audio.AudioPlayer

	// Prefs is optional; without it theme changes are not remembered.
	Prefs *prefs.Store
}

func (s Services) validate() error {
	switch {
	case s.Keys == nil:
		return errors.New("no catalog client configured")
	case s.Cache == nil:
		return errors.New("no search cache configured")
	case s.Loader == nil:
		return errors.New("no preview loader configured")
	case s.Player == nil:
		return errors.New("no audio output configured")
	}
	return nil
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, svc Services) *tea.Program {
	log.Debug("Starting songsnip", "theme", cfg.Theme, "glamour", cfg.GlamourEnabled)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, svc), opts...)
}

type (
	searchResultMsg struct {
		seq    int
		term   string
		entry  searchEntry
		origin search.Origin
	}
	prefsChangedMsg struct {
		values map[string]string
		ch     <-chan map[string]string
	}
	statusMessageTimeoutMsg struct{ id int }
	startSearchMsg          struct{ term string }
)

// focus is the part of the screen receiving keys.
type focus int

const (
	focusList focus = iota
	focusSearch
	focusFilter
)

func (f focus) String() string {
	return map[focus]string{
		focusList:   "results",
		focusSearch: "search",
		focusFilter: "filter",
	}[f]
}

type model struct {
	cfg      Config
	svc      Services
	fatalErr error

	keys        keyMap
	help        help.Model
	input       textinput.Model
	filterInput textinput.Model
	spinner     spinner.Model
	details     viewport.Model

	focus       focus
	showDetails bool
	list        cardList
	playback    playback
	theme       string

	searching bool
	searchSeq int
	lastTerm  string

	statusMessage string
	statusIsError bool
	statusID      int

	width  int
	height int

	prefsCh <-chan map[string]string
	cancel  context.CancelFunc
}

func newModel(cfg Config, svc Services) model {
	input := textinput.New()
	input.Placeholder = "Search for a song, artist or album"
	input.Prompt = "❯ "
	input.CharLimit = 200
	input.SetValue(cfg.Term)

	filterInput := textinput.New()
	filterInput.Prompt = "filter: "
	filterInput.CharLimit = 100

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(fuchsia)

	ctx, cancel := context.WithCancel(context.Background())

	m := model{
		cfg:         cfg,
		svc:         svc,
		keys:        newKeyMap(),
		help:        help.New(),
		input:       input,
		filterInput: filterInput,
		spinner:     sp,
		details:     viewport.New(0, 0),
		focus:       focusSearch,
		playback:    playback{player: svc.Player, loader: svc.Loader},
		cancel:      cancel,
	}

	if err := svc.validate(); err != nil {
		m.fatalErr = err
		return m
	}

	m.theme = resolveTheme(cfg.Theme)
	if svc.Prefs != nil {
		if stored, ok := svc.Prefs.Get(prefs.KeyUserStyle); ok && (stored == themeDark || stored == themeLight) {
			m.theme = stored
		}
		ch, err := svc.Prefs.Watch(ctx)
		if err != nil {
			log.Warn("unable to watch preferences", "error", err)
		} else {
			m.prefsCh = ch
		}
	}
	applyTheme(m.theme)

	if cfg.Volume > 0 {
		if err := svc.Player.SetVolume(min(cfg.Volume, 1)); err != nil {
			log.Warn("unable to set volume", "error", err)
		}
	}

	m.input.Focus()
	return m
}

func (m model) Init() tea.Cmd {
	if m.fatalErr != nil {
		return nil
	}

	cmds := []tea.Cmd{textinput.Blink}
	if m.prefsCh != nil {
		cmds = append(cmds, waitForPrefs(m.prefsCh))
	}
	if term := strings.TrimSpace(m.cfg.Term); term != "" {
		cmds = append(cmds, func() tea.Msg {
			return startSearchMsg{term: term}
		})
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, m.quit()
		}
		switch m.focus {
		case focusSearch:
			return m.updateSearch(msg)
		case focusFilter:
			return m.updateFilter(msg)
		default:
			return m.updateList(msg)
		}

	case tea.MouseMsg:
		switch msg.Button { //nolint:exhaustive
		case tea.MouseButtonWheelUp:
			m.list.moveUp()
		case tea.MouseButtonWheelDown:
			m.list.moveDown()
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)

	case startSearchMsg:
		if cmd := m.submitSearch(msg.term); cmd != nil {
			m.setFocus(focusList)
			cmds = append(cmds, cmd)
		}

	case searchResultMsg:
		cmds = append(cmds, m.handleSearchResult(msg))

	case previewLoadedMsg:
		if msg.trackID != m.list.selectedID {
			m.playback.discard(msg)
			break
		}
		cmd, err := m.playback.loaded(msg, m.list.paused)
		if err != nil {
			log.Error("unable to play preview", "track", msg.trackID, "error", err)
			m.list.deselect()
			cmds = append(cmds, m.showStatus(previewErrorText(err), true))
			break
		}
		cmds = append(cmds, cmd)

	case playbackEndedMsg:
		if m.playback.endedFor(msg) {
			log.Debug("preview ended", "track", m.list.selectedID)
			m.list.ended()
		}

	case progressTickMsg:
		cmds = append(cmds, m.playback.onTick())

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case prefsChangedMsg:
		if style, ok := msg.values[prefs.KeyUserStyle]; ok && (style == themeDark || style == themeLight) && style != m.theme {
			log.Debug("theme changed on disk", "theme", style)
			m.setTheme(style)
		}
		cmds = append(cmds, waitForPrefs(msg.ch))

	case statusMessageTimeoutMsg:
		if msg.id == m.statusID {
			m.statusMessage = ""
			m.statusIsError = false
		}
	}

	// Keep the cursor blinking in whichever field has focus
	switch m.focus { //nolint:exhaustive
	case focusSearch:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	case focusFilter:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		cmd := m.submitSearch(m.input.Value())
		if cmd == nil {
			return m, nil
		}
		m.setFocus(focusList)
		return m, cmd

	case key.Matches(msg, m.keys.Blur):
		m.setFocus(focusList)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.SetValue("")
		m.list.setFilter("")
		m.setFocus(focusList)
		return m, nil
	case "enter", "tab":
		m.setFocus(focusList)
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.list.setFilter(m.filterInput.Value())
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showDetails {
		switch msg.String() {
		case "d", "esc", "q":
			m.showDetails = false
			return m, nil
		}
		var cmd tea.Cmd
		m.details, cmd = m.details.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Search):
		m.setFocus(focusSearch)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		m.list.moveUp()

	case key.Matches(msg, m.keys.Down):
		m.list.moveDown()

	case key.Matches(msg, m.keys.Play):
		return m, m.playCurrent()

	case key.Matches(msg, m.keys.SeekBack):
		return m, m.playback.seek(-seekStep)

	case key.Matches(msg, m.keys.SeekFwd):
		return m, m.playback.seek(seekStep)

	case key.Matches(msg, m.keys.SeekTo):
		n := int(msg.Runes[0] - '0')
		return m, m.playback.seekFraction(float64(n) / 10) //nolint:mnd

	case key.Matches(msg, m.keys.Filter):
		if len(m.list.cards) == 0 {
			return m, nil
		}
		m.setFocus(focusFilter)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.ClearFocus):
		if m.list.filter != "" {
			m.filterInput.SetValue("")
			m.list.setFilter("")
		}

	case key.Matches(msg, m.keys.Details):
		if _, ok := m.list.current(); ok {
			m.showDetails = true
			m.refreshDetails()
		}

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLink()

	case key.Matches(msg, m.keys.Theme):
		next := otherTheme(m.theme)
		m.setTheme(next)
		if m.svc.Prefs != nil {
			if err := m.svc.Prefs.Set(prefs.KeyUserStyle, next); err != nil {
				log.Error("unable to save theme", "error", err)
				return m, m.showStatus("Couldn't save theme", true)
			}
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// submitSearch hands term to the cache. The term stays in this closure;
// the shared entry only knows its key.
func (m *model) submitSearch(term string) tea.Cmd {
	term = strings.TrimSpace(term)
	cacheKey := m.svc.Keys.SearchURL(term)
	if cacheKey == "" {
		return nil
	}

	m.searchSeq++
	m.searching = true
	m.lastTerm = term

	seq, cache := m.searchSeq, m.svc.Cache
	run := func() tea.Msg {
		ch := make(chan searchEntry, 1)
		_, origin := cache.Submit(cacheKey, func(e searchEntry) { ch <- e })
		return searchResultMsg{seq: seq, term: term, entry: <-ch, origin: origin}
	}

	return tea.Batch(m.spinner.Tick, run)
}

func (m *model) handleSearchResult(msg searchResultMsg) tea.Cmd {
	log.Debug("search settled",
		"term", msg.term,
		"origin", msg.origin,
		"state", msg.entry.State(),
		"age", time.Since(msg.entry.CreatedAt()))

	// Only the newest search may replace the cards.
	if msg.seq != m.searchSeq {
		return nil
	}
	m.searching = false

	if err := msg.entry.Err(); err != nil {
		log.Warn("search failed", "term", msg.term, "error", err)
	}

	selected := m.list.selectedID
	m.list.apply(renderOutcome(msg.entry, msg.term))
	if selected != 0 && m.list.selectedID == 0 {
		// The dropped card may still own the output or a pending load.
		m.playback.stop()
	}
	m.filterInput.SetValue("")
	if m.showDetails {
		m.refreshDetails()
	}
	return nil
}

// playCurrent plays the card under the cursor.
func (m *model) playCurrent() tea.Cmd {
	track, action := m.list.play(m.list.cursor)

	switch action {
	case actionLoad:
		cmd := m.playback.load(track)
		return tea.Batch(cmd, m.spinner.Tick)
	case actionPause:
		m.playback.pause()
	case actionResume:
		if m.playback.idle() {
			// Nothing is loaded, so start the preview again.
			return tea.Batch(m.playback.load(track), m.spinner.Tick)
		}
		return m.playback.resume()
	}
	return nil
}

func (m *model) copyLink() tea.Cmd {
	track, ok := m.list.current()
	if !ok {
		return nil
	}

	link := track.TrackViewURL
	if link == "" {
		link = track.PreviewURL
	}
	if link == "" {
		return m.showStatus("No link for this track", true)
	}

	if err := clipboard.WriteAll(link); err != nil {
		log.Error("unable to copy link", "error", err)
		return m.showStatus("Couldn't copy link", true)
	}
	return m.showStatus("Copied link!", false)
}

func (m *model) setTheme(name string) {
	m.theme = name
	applyTheme(name)
	if m.showDetails {
		m.refreshDetails()
	}
}

func (m *model) setFocus(f focus) {
	log.Debug("focus changed", "from", m.focus, "to", f)
	m.focus = f
	m.input.Blur()
	m.filterInput.Blur()

	switch f {
	case focusSearch:
		m.input.Focus()
	case focusFilter:
		m.filterInput.Focus()
	}
}

func (m *model) setSize(w, h int) {
	m.width = w
	m.height = h
	m.help.Width = w
	m.input.Width = max(10, w-ansi.PrintableRuneWidth(logoView())-6)
	m.details.Width = w
	m.details.Height = max(1, m.contentHeight())
	if m.showDetails {
		m.refreshDetails()
	}
}

func (m *model) refreshDetails() {
	track, ok := m.list.current()
	if !ok {
		m.showDetails = false
		return
	}

	var store *preview.StoreStats
	if s, ok := m.svc.Loader.(storeStatter); ok {
		stats := s.Stats()
		store = &stats
	}

	md := detailsMarkdown(track, m.svc.Cache.Stats(), store)
	m.details.SetContent(renderDetails(md, m.width-4, m.theme, m.cfg.GlamourEnabled))
	m.details.GotoTop()
}

func (m *model) showStatus(text string, isError bool) tea.Cmd {
	m.statusID++
	m.statusMessage = text
	m.statusIsError = isError

	id := m.statusID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{id: id}
	})
}

func (m *model) quit() tea.Cmd {
	m.playback.stop()
	m.cancel()
	return tea.Quit
}

func (m model) busy() bool {
	return m.searching || m.playback.loading != 0
}

func (m model) contentHeight() int {
	return m.height - headerHeight - footerHeight
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder

	// Header
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	// Body
	body := m.list.view(m.width, m.contentHeight(), m.focus == focusList)
	if m.showDetails {
		body = detailsStyle.Width(max(0, m.width-2)).Render(m.details.View())
	}
	b.WriteString(body)

	// Footer
	b.WriteString("\n")
	b.WriteString(m.playback.view(m.width, m.list.paused))
	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m model) headerView() string {
	logo := logoView()

	var field string
	switch {
	case m.focus == focusFilter:
		field = m.filterInput.View()
	case m.focus == focusSearch:
		field = m.input.View()
	case m.lastTerm != "":
		field = subtleStyle.Render("❯ " + m.lastTerm)
	default:
		field = subtleStyle.Render("press / to search")
	}

	header := logo + " " + field
	if m.busy() {
		header += " " + m.spinner.View()
	}
	return header
}

func (m model) statusBarView() string {
	var note string
	style := statusBarNoteStyle

	switch {
	case m.statusMessage != "":
		note = m.statusMessage
		style = statusBarMessageStyle
		if m.statusIsError {
			style = statusBarErrorStyle
		}
	case m.list.filter != "":
		note = fmt.Sprintf("%d of %d match %q", len(m.list.visible), len(m.list.cards), m.list.filter)
	case len(m.list.cards) > 0:
		note = pluralize(len(m.list.cards), "song", "songs")
		if m.lastTerm != "" {
			note += fmt.Sprintf(" for %q", m.lastTerm)
		}
	default:
		note = "no results yet"
	}

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, m.width)), ellipsis) //nolint:gosec
	padding := max(0, m.width-ansi.PrintableRuneWidth(note))
	return style.Render(note + strings.Repeat(" ", padding))
}

func logoView() string {
	return logoStyle.Render("songsnip")
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// previewErrorText explains a failed load in the status bar.
func previewErrorText(err error) string {
	switch {
	case errors.Is(err, preview.ErrDecoderMissing):
		return "Install ffmpeg to play previews"
	case errors.Is(err, context.Canceled):
		return "Preview cancelled"
	default:
		return "Couldn't load preview - try again later!"
	}
}

// COMMANDS

func waitForPrefs(ch <-chan map[string]string) tea.Cmd {
	return func() tea.Msg {
		values, ok := <-ch
		if !ok {
			return nil
		}
		return prefsChangedMsg{values: values, ch: ch}
	}
}

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
