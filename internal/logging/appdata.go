package logging

import (
	"path/filepath"
	"strings"
)

// AppDataDir returns the per-user directory the viewer keeps its files in.
func AppDataDir(goos, home string) string {
	switch {
	case goos == "windows" || strings.HasPrefix(goos, "win"):
		return filepath.Join(home, ".Ageviewer")
	case goos == "darwin":
		return filepath.Join(home, "Library", "Preferences", "Ageviewer")
	default:
		return filepath.Join(home, ".config", ".Ageviewer")
	}
}
