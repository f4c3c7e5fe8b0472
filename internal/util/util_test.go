package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{
			name:      "plain name stays",
			input:     "holiday video",
			maxLength: 50,
			expected:  "holiday video",
		},
		{
			name:      "forbidden characters stripped",
			input:     `a\b/c*d?e:f"g<h>i|j`,
			maxLength: 50,
			expected:  "abcdefghij",
		},
		{
			name:      "surrounding whitespace trimmed",
			input:     "  spaced out  ",
			maxLength: 50,
			expected:  "spaced out",
		},
		{
			name:      "truncated by runes not bytes",
			input:     "日本語のタイトルです",
			maxLength: 4,
			expected:  "日本語の",
		},
		{
			name:      "empty input",
			input:     "",
			maxLength: 50,
			expected:  "",
		},
		{
			name:      "only forbidden characters",
			input:     `\/*?:"<>|`,
			maxLength: 50,
			expected:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, SanitizeFilename(tc.input, tc.maxLength))
		})
	}
}