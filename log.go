package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures the global logger. By default nothing is
// emitted below the error level; KOVO_LOG redirects full logging to a
// file, which is the only safe sink in notification mode where stderr
// belongs to the calling process.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.ErrorLevel)
	log.SetTimeFormat(time.Kitchen)

	path := os.Getenv("KOVO_LOG")
	if path == "" {
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}
