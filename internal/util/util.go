package util

import (
	"strings"
)

const illegalFilenameChars = `\/*?:"<>|`

// SanitizeFilename strips characters that are illegal in file names on at
// least one supported platform, trims surrounding whitespace and truncates
// the result to maxLength runes. maxLength <= 0 disables truncation.
func SanitizeFilename(name string, maxLength int) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(illegalFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	sanitized := strings.TrimSpace(b.String())

	if maxLength > 0 {
		runes := []rune(sanitized)
		if len(runes) > maxLength {
			sanitized = string(runes[:maxLength])
		}
	}

	return sanitized
}