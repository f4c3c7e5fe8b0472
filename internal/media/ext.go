// Package media holds the fixed knowledge about media file types: how to
// pick an extension for an asset URL and how to classify files on disk.
package media

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// mimeExtensions maps transport content types to extensions. Order matters:
// entries are checked with substring match against the response header, so
// more specific types must come first.
var mimeExtensions = []struct {
	mimeType string
	ext      string
}{
	{"image/jpeg", ".jpg"},
	{"image/png", ".png"},
	{"image/heic", ".heic"},
	{"image/webp", ".webp"},
	{"image/gif", ".gif"},
	{"video/mp4", ".mp4"},
	{"video/quicktime", ".mov"},
	{"video/webm", ".webm"},
	{"audio/mpeg", ".mp3"},
	{"audio/mp4", ".m4a"},
	{"audio/wav", ".wav"},
	{"audio/aac", ".aac"},
}

// urlExtensions are checked as substrings of the lowercased URL, images
// first, then video, then audio.
var urlExtensions = []struct {
	marker string
	ext    string
}{
	{".webp", ".webp"},
	{".png", ".png"},
	{".jpg", ".jpg"},
	{".jpeg", ".jpg"},
	{".gif", ".gif"},
	{".mp4", ".mp4"},
	{".mov", ".mov"},
	{".webm", ".webm"},
	{".mp3", ".mp3"},
	{".m4a", ".m4a"},
	{".wav", ".wav"},
	{".aac", ".aac"},
}

// ResolveExtension determines the file extension for an asset. Priority:
// response content type, extension inferred from the URL path, substring
// markers inside the URL, then the caller's fallback. It never fails.
func ResolveExtension(rawURL, fallbackExt, contentType string) string {
	if contentType != "" {
		ct := strings.ToLower(contentType)
		for _, m := range mimeExtensions {
			if strings.Contains(ct, m.mimeType) {
				return m.ext
			}
		}
	}

	if rawURL != "" {
		lower := strings.ToLower(rawURL)

		if ext := extFromURLPath(lower); ext != "" && ext != ".jpe" {
			return ext
		}

		for _, m := range urlExtensions {
			if strings.Contains(lower, m.marker) {
				return m.ext
			}
		}
	}

	return fallbackExt
}

// extFromURLPath infers an extension from the URL's path component, accepting
// it only when it denotes a registered media type.
func extFromURLPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	ext := path.Ext(u.Path)
	if ext == "" {
		return ""
	}

	if mime.TypeByExtension(ext) == "" {
		return ""
	}

	return ext
}
