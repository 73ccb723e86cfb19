// Package patternfinder locates the pattern file when none is given on the
// command line.
package patternfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrPatternFileNotFound is returned when no pattern file could be located.
var ErrPatternFileNotFound = errors.New("pattern file not found")

var baseNames = []string{"patterns.yaml", "patterns.yml", "patterns.json", "patterns.toml"}

// DefaultPatternFiles returns the candidate pattern files in priority
// order: the working directory first, then the user config directory
// ($XDG_CONFIG_HOME/adbtool on Linux).
func DefaultPatternFiles() []string {
	out := slices.Clone(baseNames)
	if dir, err := os.UserConfigDir(); err == nil {
		for _, name := range baseNames {
			out = append(out, filepath.Join(dir, "adbtool", name))
		}
	}
	return out
}

// FindPatternFile returns the pattern file to load.
//
// Priority:
//  1. explicit (if non-empty); it must exist
//  2. the first existing file of DefaultPatternFiles()
//
// The returned path has symlinks resolved so it can be opened as a
// regular file.
func FindPatternFile(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveFile(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s is missing or not a regular file", ErrPatternFileNotFound, explicit)
	}

	for _, candidate := range DefaultPatternFiles() {
		if resolved := resolveFile(candidate); resolved != "" {
			return resolved, nil
		}
	}
	return "", ErrPatternFileNotFound
}

// resolveFile resolves symlinks and returns the path if it names a
// regular file, or "" otherwise.
func resolveFile(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return ""
	}
	return resolved
}
