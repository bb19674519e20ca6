package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/songsnip/utils"
)

const defaultConfig = `# color theme: auto, dark or light (a theme toggled with "t" is remembered)
theme: "auto"
# mouse wheel support
mouse: false
# preview volume between 0 and 1
volume: 1.0

search:
  # maximum number of songs to show (at most 50)
  limit: 50
  # two-letter store country, e.g. "us" or "gb"
  country: ""
  # query the catalog through the CORS proxy
  use_proxy: false
  # outbound searches allowed per minute
  requests_per_minute: 20
  # how long one search request may take
  request_timeout: 5s
  # how long an unanswered search is kept before it is dropped
  pending_timeout: 30s
  # how long a successful search is replayed without asking again
  freshness: 15m
  # how often expired searches are swept in the background
  sweep_interval: 1m

preview:
  # ffmpeg binary used to decode previews
  ffmpeg: "ffmpeg"
  # how long one preview download may take
  timeout: 15s
  # memory kept for downloaded previews, in megabytes
  cache_size_mb: 64
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the songsnip config file",
	Long:    paragraph(fmt.Sprintf("\n%s the songsnip config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("songsnip config\nsongsnip config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("songsnip", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := utils.EnsureDir(configFile); err != nil {
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}
	configFile = utils.ExpandPath(configFile)

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := utils.EnsureDir(configFile); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
