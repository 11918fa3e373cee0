package catalog

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Ignored reports whether relPath matches any of the glob patterns, either
// as a whole path or by base name.
func Ignored(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	normalized := filepath.ToSlash(relPath)
	base := filepath.Base(normalized)

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}
