package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/kovo-tts/kovo/internal/config"
)

const defaultConfig = `# synthesis engine URL
server_url: "http://localhost:8880"
# voice ID or weighted blend, e.g. "af_bella(2)+af_sky(1)"
voice: "af_bella"
# audio format: wav, mp3, pcm, opus, flac
format: "wav"
# speech speed multiplier (0.5 to 2.0)
speed: 1.0

# suppress transcript output
quiet: false
# play without blocking on completion
background: false
# short-deadline mode for notification hooks
notification: false
# warm the cache with common phrases after each request
preload: true

cache:
  # disk tier location (default is the user cache directory)
  # dir: ~/.cache/kovo/audio
  # hot tier budget in megabytes
  hot_mb: 10
  # in-memory LRU entry count
  memory_entries: 100
  # disk tier budget in gigabytes
  disk_gb: 1.0
  # compress disk entries with zstd
  compression: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the kovo config file",
	Long:    paragraph(fmt.Sprintf("\n%s the kovo config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("kovo config\nkovo config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Kovo", configFile)
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
		p, err := config.UserConfigPath()
		if err != nil {
			return fmt.Errorf("could not locate configuration directory: %w", err)
		}
		configFile = p
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
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
