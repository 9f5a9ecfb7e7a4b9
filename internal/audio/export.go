package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportError represents a failure writing audio to disk.
type ExportError struct {
	Path  string
	Cause error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("exporting audio to %s: %v", e.Path, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// FormatForPath infers the engine format to request from an export
// path's extension. An unrecognized or missing extension falls back to
// fallback.
func FormatForPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "wav"
	case ".mp3":
		return "mp3"
	case ".pcm", ".raw":
		return "pcm"
	case ".opus":
		return "opus"
	case ".flac":
		return "flac"
	default:
		return fallback
	}
}

// Export writes audio bytes to path. The write goes through a temp
// file in the same directory and a rename, so a crash never leaves a
// half-written export behind.
func Export(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &ExportError{Path: path, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return &ExportError{Path: path, Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ExportError{Path: path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &ExportError{Path: path, Cause: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &ExportError{Path: path, Cause: err}
	}
	return nil
}
