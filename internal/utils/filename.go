package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	multipleSpaces       = regexp.MustCompile(`\s+`)
)

// maxFilenameRunes bounds the sanitized name length.
const maxFilenameRunes = 80

// SanitizeFilename turns arbitrary text into a single path element. Leading
// dots are dropped so the result is never hidden or relative.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, " ")
	name = multipleSpaces.ReplaceAllString(name, " ")
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	name = strings.TrimSpace(name)

	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = strings.TrimSpace(string(runes[:maxFilenameRunes]))
	}
	if name == "" {
		name = "untitled"
	}
	return name
}

// PackFilename names the Markdown file for a pack. The id keeps packs that
// share a label apart.
func PackFilename(label, id string) string {
	return SanitizeFilename(label) + " (" + SanitizeFilename(id) + ").md"
}
