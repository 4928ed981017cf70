package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteMarkdown writes content to dir/fileName, creating dir as needed,
// and returns the full path.
func WriteMarkdown(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, SafeFileName(fileName))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return path, nil
}

// SafeFileName replaces characters that index symbols carry (^, =) and
// path separators.
func SafeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '^', '=', '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
