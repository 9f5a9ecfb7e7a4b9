package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// ParseError reports a config file that exists but cannot be parsed.
// The caller decides whether to abort or drop that one source and fall
// through to lower precedence.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadFile reads one YAML config file into a Source. A missing file is
// an empty source, not an error; a malformed file yields *ParseError.
func LoadFile(path string) (Source, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Source{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return Source{}, &ParseError{Path: path, Err: err}
	}

	var src Source
	if v.IsSet("server_url") {
		src.ServerURL = ptr(v.GetString("server_url"))
	}
	if v.IsSet("voice") {
		src.Voice = ptr(v.GetString("voice"))
	}
	if v.IsSet("format") {
		src.Format = ptr(v.GetString("format"))
	}
	if v.IsSet("speed") {
		src.Speed = ptr(v.GetFloat64("speed"))
	}
	if v.IsSet("notification") {
		src.Notification = ptr(v.GetBool("notification"))
	}
	if v.IsSet("quiet") {
		src.Quiet = ptr(v.GetBool("quiet"))
	}
	if v.IsSet("background") {
		src.Background = ptr(v.GetBool("background"))
	}
	if v.IsSet("preload") {
		src.Preload = ptr(v.GetBool("preload"))
	}
	if v.IsSet("debug") {
		src.Debug = ptr(v.GetBool("debug"))
	}
	if v.IsSet("cache.dir") {
		dir, err := homedir.Expand(v.GetString("cache.dir"))
		if err != nil {
			return Source{}, &ParseError{Path: path, Err: err}
		}
		src.CacheDir = ptr(dir)
	}
	if v.IsSet("cache.hot_mb") {
		src.CacheHotMB = ptr(v.GetInt("cache.hot_mb"))
	}
	if v.IsSet("cache.memory_entries") {
		src.CacheMemoryItems = ptr(v.GetInt("cache.memory_entries"))
	}
	if v.IsSet("cache.disk_gb") {
		src.CacheDiskGB = ptr(v.GetFloat64("cache.disk_gb"))
	}
	if v.IsSet("cache.compression") {
		src.CacheCompression = ptr(v.GetBool("cache.compression"))
	}

	return src, nil
}

// envSource mirrors Source with KOVO_* environment bindings. Pointer
// fields distinguish "unset" from zero values.
type envSource struct {
	ServerURL *string  `env:"KOVO_SERVER_URL"`
	Voice     *string  `env:"KOVO_VOICE"`
	Format    *string  `env:"KOVO_FORMAT"`
	Speed     *float64 `env:"KOVO_SPEED"`

	Notification *bool `env:"KOVO_NOTIFICATION"`
	Quiet        *bool `env:"KOVO_QUIET"`
	Background   *bool `env:"KOVO_BACKGROUND"`
	Preload      *bool `env:"KOVO_PRELOAD"`
	Debug        *bool `env:"KOVO_DEBUG"`

	CacheDir *string `env:"KOVO_CACHE_DIR"`
}

// LoadEnv reads the KOVO_* environment override layer.
func LoadEnv() (Source, error) {
	var e envSource
	if err := env.Parse(&e); err != nil {
		return Source{}, fmt.Errorf("parse environment: %w", err)
	}
	return Source{
		ServerURL:    e.ServerURL,
		Voice:        e.Voice,
		Format:       e.Format,
		Speed:        e.Speed,
		Notification: e.Notification,
		Quiet:        e.Quiet,
		Background:   e.Background,
		Preload:      e.Preload,
		Debug:        e.Debug,
		CacheDir:     e.CacheDir,
	}, nil
}

func ptr[T any](v T) *T { return &v }
