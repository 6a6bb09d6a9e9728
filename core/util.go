package core

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ConfigDir returns the per-user directory holding the client's durable state (the session file).
// Falls back to the working directory when the OS does not report one.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "internctl")
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
