package entity

import (
	"strings"

	"github.com/jgivc/mediafetch/internal/common"
)

// ContentRecord is the normalized description of one downloadable unit as
// produced by a platform content resolver. The downloader reads it as-is and
// only fills in MediaType when the resolver left it unset.
type ContentRecord struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	MediaType   MediaType `json:"media_type"`
	Description string    `json:"description,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	VideoURLs   []string  `json:"video_urls,omitempty"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	AudioURLs   []string  `json:"audio_urls,omitempty"`
	MusicURLs   []string  `json:"music_urls,omitempty"`
	MusicID     string    `json:"music_id,omitempty"`
}

// Validate rejects records that must not reach any I/O path.
func (r *ContentRecord) Validate() error {
	if r.ID == "" {
		return common.ErrMissingID
	}

	return nil
}

// ValidURL reports whether u is a well-formed absolute http(s) URL as far as
// the downloader cares: everything else is skipped before any request.
func ValidURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// FilterValidURLs keeps the well-formed http(s) URLs of urls, preserving
// order.
func FilterValidURLs(urls []string) []string {
	var valid []string
	for _, u := range urls {
		if ValidURL(u) {
			valid = append(valid, u)
		}
	}

	return valid
}
