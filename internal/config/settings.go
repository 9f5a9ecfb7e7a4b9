package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gap "github.com/muesli/go-app-paths"
)

// SupportedFormats lists the audio formats the synthesis engine can
// produce.
var SupportedFormats = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"pcm":  true,
	"opus": true,
	"flac": true,
}

const (
	// DefaultServerURL is the conventional local engine address.
	DefaultServerURL = "http://localhost:8880"

	// DefaultVoice is the recommended engine voice.
	DefaultVoice = "af_bella"

	// Speed bounds accepted by the engine.
	MinSpeed = 0.5
	MaxSpeed = 2.0

	// MaxTextLength bounds a single request's text.
	MaxTextLength = 10000
)

// Settings is the fully resolved configuration for one invocation.
// Every field holds exactly one value chosen by precedence; partial
// merges never leak through (see Resolve).
type Settings struct {
	ServerURL string
	Voice     string
	Format    string
	Speed     float64

	Notification bool
	Quiet        bool
	Background   bool
	Preload      bool
	Debug        bool

	Cache CacheSettings
}

// CacheSettings carries the tier capacities and disk location. These
// are tuning defaults, not contractual limits.
type CacheSettings struct {
	Dir           string
	HotMB         int
	MemoryEntries int
	DiskGB        float64
	Compression   bool
}

// Defaults returns the built-in lowest-precedence settings.
func Defaults() Settings {
	return Settings{
		ServerURL: DefaultServerURL,
		Voice:     DefaultVoice,
		Format:    "wav",
		Speed:     1.0,
		Preload:   true,
		Cache: CacheSettings{
			HotMB:         10,
			MemoryEntries: 100,
			DiskGB:        1.0,
		},
	}
}

// Validate checks the resolved settings.
func (s *Settings) Validate() error {
	if s.ServerURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if s.Speed < MinSpeed || s.Speed > MaxSpeed {
		return fmt.Errorf("speed must be between %v and %v, got %v", MinSpeed, MaxSpeed, s.Speed)
	}
	if !SupportedFormats[s.Format] {
		return fmt.Errorf("unsupported format %q (supported: %s)", s.Format, FormatList())
	}
	if s.Cache.HotMB <= 0 || s.Cache.MemoryEntries <= 0 || s.Cache.DiskGB <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}
	return nil
}

// FormatList renders the supported formats for error messages and
// help text, in stable order.
func FormatList() string {
	names := make([]string, 0, len(SupportedFormats))
	for f := range SupportedFormats {
		names = append(names, f)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Source is one configuration source: a field is applied only when its
// pointer is non-nil, so absent fields fall through to lower-precedence
// sources.
type Source struct {
	ServerURL *string
	Voice     *string
	Format    *string
	Speed     *float64

	Notification *bool
	Quiet        *bool
	Background   *bool
	Preload      *bool
	Debug        *bool

	CacheDir         *string
	CacheHotMB       *int
	CacheMemoryItems *int
	CacheDiskGB      *float64
	CacheCompression *bool
}

// Resolve merges sources into one Settings. Sources are applied lowest
// precedence first, so later sources fully replace earlier values
// field by field.
func Resolve(sources ...Source) Settings {
	s := Defaults()
	for _, src := range sources {
		src.apply(&s)
	}
	return s
}

func (src Source) apply(s *Settings) {
	if src.ServerURL != nil {
		s.ServerURL = *src.ServerURL
	}
	if src.Voice != nil {
		s.Voice = *src.Voice
	}
	if src.Format != nil {
		s.Format = *src.Format
	}
	if src.Speed != nil {
		s.Speed = *src.Speed
	}
	if src.Notification != nil {
		s.Notification = *src.Notification
	}
	if src.Quiet != nil {
		s.Quiet = *src.Quiet
	}
	if src.Background != nil {
		s.Background = *src.Background
	}
	if src.Preload != nil {
		s.Preload = *src.Preload
	}
	if src.Debug != nil {
		s.Debug = *src.Debug
	}
	if src.CacheDir != nil {
		s.Cache.Dir = *src.CacheDir
	}
	if src.CacheHotMB != nil {
		s.Cache.HotMB = *src.CacheHotMB
	}
	if src.CacheMemoryItems != nil {
		s.Cache.MemoryEntries = *src.CacheMemoryItems
	}
	if src.CacheDiskGB != nil {
		s.Cache.DiskGB = *src.CacheDiskGB
	}
	if src.CacheCompression != nil {
		s.Cache.Compression = *src.CacheCompression
	}
}

// UserConfigPath returns the user-scoped config file location, e.g.
// ~/.config/kovo/kovo.yml on Linux.
func UserConfigPath() (string, error) {
	scope := gap.NewScope(gap.User, "kovo")
	dirs, err := scope.ConfigDirs()
	if err != nil || len(dirs) == 0 {
		return "", fmt.Errorf("locate user config directory: %w", err)
	}
	return filepath.Join(dirs[0], "kovo.yml"), nil
}

// UserCacheDir returns the default disk-tier directory, e.g.
// ~/.cache/kovo/audio.
func UserCacheDir() (string, error) {
	scope := gap.NewScope(gap.User, "kovo")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

// ProjectConfigPath is the project-scoped config file, resolved
// relative to the working directory.
const ProjectConfigPath = ".kovo.yml"
