package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Theme is "auto", "dark" or "light". A stored preference wins over it.
	Theme       string
	EnableMouse bool
	Volume      float64

	// Term is searched for as soon as the program starts.
	Term string

	// For debugging the UI
	GlamourEnabled bool `env:"SONGSNIP_ENABLE_GLAMOUR" envDefault:"true"`
	AltScreen      bool `env:"SONGSNIP_ALT_SCREEN"     envDefault:"true"`
}
