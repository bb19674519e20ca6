package ui

import (
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	te "github.com/muesli/termenv"
)

// Colors.
var (
	normalDim = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	darkGray  = lipgloss.AdaptiveColor{Light: "#DDDADA", Dark: "#3C3C3C"}
	brightFg  = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#EEEEEE"}
	fuchsia   = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#EE6FF8"}
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	yellow    = lipgloss.AdaptiveColor{Light: "#C98A00", Dark: "#ECFD65"}

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
)

// Styles.
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1F1F1")).
			Background(lipgloss.Color("#FF5F87")).
			Bold(true).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Foreground(red).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(gray)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(brightFg)

	cardArtistStyle = lipgloss.NewStyle().
			Foreground(normalDim)

	cursorTitleStyle = lipgloss.NewStyle().
				Foreground(fuchsia).
				Bold(true)

	cursorArtistStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#F793FF", Dark: "#AD58B4"})

	cursorBarStyle = lipgloss.NewStyle().
			Foreground(fuchsia)

	playingStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(yellow)

	pinnedStyle = lipgloss.NewStyle().
			Foreground(midGray).
			Italic(true)

	progressFilledStyle = lipgloss.NewStyle().
				Foreground(green)

	progressEmptyStyle = lipgloss.NewStyle().
				Foreground(darkGray)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg)

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen)

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F1F1F1")).
				Background(lipgloss.Color("#FF5F87"))

	detailsStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(midGray).
			Padding(0, 1)
)

// Theme names as stored in the preferences file.
const (
	themeAuto  = "auto"
	themeDark  = "dark"
	themeLight = "light"
)

// resolveTheme turns a configured theme into dark or light. "auto" asks the
// terminal for its background colour.
func resolveTheme(name string) string {
	switch name {
	case themeDark, themeLight:
		return name
	default:
		if te.HasDarkBackground() {
			return themeDark
		}
		return themeLight
	}
}

// applyTheme makes every adaptive colour follow the given theme.
func applyTheme(name string) {
	lipgloss.SetHasDarkBackground(name != themeLight)
}

// otherTheme returns the theme the toggle key switches to.
func otherTheme(name string) string {
	if name == themeLight {
		return themeDark
	}
	return themeLight
}

// glamourStyle returns the markdown style for a theme.
func glamourStyle(name string) string {
	if name == themeLight {
		return styles.LightStyle
	}
	return styles.DarkStyle
}
