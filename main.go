// Package main provides the entry point for the songsnip CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/songsnip/internal/audio"
	"github.com/dgnsrekt/songsnip/internal/catalog"
	"github.com/dgnsrekt/songsnip/internal/prefs"
	"github.com/dgnsrekt/songsnip/internal/preview"
	"github.com/dgnsrekt/songsnip/internal/search"
	"github.com/dgnsrekt/songsnip/ui"
	"github.com/dgnsrekt/songsnip/utils"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	theme      string
	mouse      bool
	volume     float64

	rootCmd = &cobra.Command{
		Use:   "songsnip [TERM]",
		Short: "Search for songs and play their previews, right in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nSearch the music catalog and %s, right in the terminal.", keyword("play song previews")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(*cobra.Command) error {
	// grab config values from Viper
	mouse = viper.GetBool("mouse")
	volume = viper.GetFloat64("volume")
	theme = strings.ToLower(viper.GetString("theme"))

	switch theme {
	case "auto", "dark", "light":
	default:
		return fmt.Errorf("unknown theme %q: use auto, dark or light", theme)
	}

	if volume < 0 || volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1, got %.2f", volume)
	}

	if n := viper.GetInt("search.limit"); n < 1 || n > catalog.MaxResults {
		return fmt.Errorf("search limit must be between 1 and %d, got %d", catalog.MaxResults, n)
	}

	for _, k := range []string{"search.request_timeout", "search.pending_timeout", "search.freshness", "preview.timeout"} {
		if viper.GetDuration(k) <= 0 {
			return fmt.Errorf("%s must be a positive duration", k)
		}
	}
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	// Without a terminal there is nothing to draw on; print results instead.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		if strings.TrimSpace(query) == "" {
			return errors.New("no terminal detected: pass a search term to print results")
		}
		return runSearch(cmd.Context(), query, cmd.OutOrStdout())
	}

	return runTUI(query)
}

// newCatalog builds the catalog client and the search cache in front of it.
func newCatalog() (*catalog.Client, *search.Cache[*catalog.Response]) {
	cfg := catalog.DefaultConfig()
	cfg.Limit = viper.GetInt("search.limit")
	cfg.Country = viper.GetString("search.country")
	cfg.UseProxy = viper.GetBool("search.use_proxy")
	cfg.RequestsPerMinute = viper.GetInt("search.requests_per_minute")
	cfg.UserAgent = "songsnip/" + Version
	if base := viper.GetString("search.base_url"); base != "" {
		cfg.BaseURL = base
	} else if cfg.UseProxy {
		cfg.BaseURL = ""
	}
	client := catalog.NewClient(cfg)

	opts := search.DefaultOptions()
	opts.RequestTimeout = viper.GetDuration("search.request_timeout")
	opts.PendingTimeout = viper.GetDuration("search.pending_timeout")
	opts.Freshness = viper.GetDuration("search.freshness")
	opts.SweepInterval = viper.GetDuration("search.sweep_interval")
	opts.Logger = log.WithPrefix("search")

	return client, search.New[*catalog.Response](client, opts)
}

// newPlayer opens the audio device. Without one the program still runs, but
// silently.
func newPlayer(cfg audio.PlayerConfig) audio.AudioPlayer {
	player, err := audio.NewPlayer(cfg)
	if err != nil {
		log.Warn("No audio output available, previews will be silent", "error", err)
		return audio.NewMockPlayer(cfg)
	}
	return player
}

func runTUI(query string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Theme = theme
	cfg.EnableMouse = mouse
	cfg.Volume = volume
	cfg.Term = query

	client, cache := newCatalog()
	defer cache.Close() //nolint:errcheck

	playerCfg := audio.DefaultPlayerConfig()
	decoder := preview.NewFFmpegDecoder(
		utils.ExpandPath(viper.GetString("preview.ffmpeg")),
		playerCfg.SampleRate,
		playerCfg.Channels,
	)
	if err := decoder.Check(); err != nil {
		log.Warn("Previews need ffmpeg", "error", err)
	}

	loader, err := preview.NewLoader(preview.Config{
		Timeout:   viper.GetDuration("preview.timeout"),
		CacheSize: viper.GetInt64("preview.cache_size_mb") << 20, //nolint:mnd
		Decoder:   decoder,
		Logger:    log.WithPrefix("preview"),
	})
	if err != nil {
		return fmt.Errorf("unable to create preview loader: %w", err)
	}

	player := newPlayer(playerCfg)
	defer player.Close() //nolint:errcheck

	svc := ui.Services{
		Keys:   client,
		Cache:  cache,
		Loader: loader,
		Player: player,
	}

	if path, err := prefs.DefaultPath(); err != nil {
		log.Warn("Could not locate preferences", "error", err)
	} else if store, err := prefs.Open(path); err != nil {
		log.Warn("Could not read preferences", "path", path, "error", err)
	} else {
		svc.Prefs = store
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, svc).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	stats := cache.Stats()
	log.Debug("Search cache on exit",
		"submits", stats.Submits,
		"fetches", stats.Fetches,
		"hit_rate", fmt.Sprintf("%.2f", stats.HitRate()))
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().Int("limit", catalog.MaxResults, "maximum number of songs to show")
	rootCmd.PersistentFlags().String("country", "", "two-letter store country")
	rootCmd.PersistentFlags().Bool("proxy", false, "query the catalog through the CORS proxy")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Second, "search request timeout") //nolint:mnd
	rootCmd.PersistentFlags().Bool("debug", false, "write debug messages to the log file")
	rootCmd.Flags().StringP("theme", "s", "auto", "color theme: auto, dark or light")
	rootCmd.Flags().Float64("volume", 1, "preview volume between 0 and 1")
	rootCmd.Flags().BoolP("mouse", "m", false, "enable mouse wheel")

	// Config bindings
	_ = viper.BindPFlag("search.limit", rootCmd.PersistentFlags().Lookup("limit"))
	_ = viper.BindPFlag("search.country", rootCmd.PersistentFlags().Lookup("country"))
	_ = viper.BindPFlag("search.use_proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	_ = viper.BindPFlag("search.request_timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("theme", rootCmd.Flags().Lookup("theme"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("theme", "auto")
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("search.limit", catalog.MaxResults)
	viper.SetDefault("search.requests_per_minute", 20) //nolint:mnd
	viper.SetDefault("search.request_timeout", 5*time.Second)
	viper.SetDefault("search.pending_timeout", 30*time.Second)
	viper.SetDefault("search.freshness", 15*time.Minute)
	viper.SetDefault("search.sweep_interval", time.Minute)
	viper.SetDefault("preview.ffmpeg", "ffmpeg")
	viper.SetDefault("preview.timeout", 15*time.Second)
	viper.SetDefault("preview.cache_size_mb", 64) //nolint:mnd

	rootCmd.AddCommand(searchCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "songsnip")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "songsnip")}, dirs...)
	}

	if c := os.Getenv("SONGSNIP_CONFIG_HOME"); c != "" {
		dirs = append([]string{utils.ExpandPath(c)}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("songsnip")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("songsnip")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "songsnip.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
