package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPreloadMessages are the phrases synthesized ahead of time when
// preload mode is on.
var DefaultPreloadMessages = []string{
	"Build completed successfully",
	"Build failed",
	"Error: Command failed",
	"Running tests",
	"Tests passed",
	"Tests failed",
	"Processing",
	"Task completed",
	"Warning",
	"Session complete",
}

// DefaultHotPhrases are the phrases pinned into the hot tier.
var DefaultHotPhrases = []string{
	"Session complete",
	"Build completed successfully",
	"Tests passed",
}

// Preload describes the startup preload set: Messages are synthesized
// into the disk cache ahead of use, HotPhrases are additionally pinned
// into the hot tier.
type Preload struct {
	Messages   []string `yaml:"messages"`
	HotPhrases []string `yaml:"hot_cache"`
}

// LoadPreload reads the preload phrase lists from the directory holding
// the user config: preload.yml if present, otherwise preload.txt (one
// phrase per line, '#' comments). Missing files fall back to the
// built-in lists. Unreadable files are treated as missing: preload is
// tuning, not correctness.
func LoadPreload(configDir string) Preload {
	p := Preload{}

	if data, err := os.ReadFile(filepath.Join(configDir, "preload.yml")); err == nil {
		if yaml.Unmarshal(data, &p) != nil {
			p = Preload{}
		}
	}

	if len(p.Messages) == 0 {
		if data, err := os.ReadFile(filepath.Join(configDir, "preload.txt")); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line != "" && !strings.HasPrefix(line, "#") {
					p.Messages = append(p.Messages, line)
				}
			}
		}
	}

	if len(p.Messages) == 0 {
		p.Messages = append([]string(nil), DefaultPreloadMessages...)
	}
	if len(p.HotPhrases) == 0 {
		p.HotPhrases = append([]string(nil), DefaultHotPhrases...)
	}
	return p
}
