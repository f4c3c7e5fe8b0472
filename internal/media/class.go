package media

import (
	"strings"
	"time"
)

// Category buckets downloaded files for the mixed-content index.
type Category int

const (
	CategoryOther Category = iota
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryMusic
)

const largeFileThreshold = 5 * 1024 * 1024

var (
	videoExts = map[string]struct{}{".mp4": {}, ".mov": {}, ".webm": {}}
	imageExts = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}}
	audioExts = map[string]struct{}{".mp3": {}, ".m4a": {}, ".wav": {}, ".aac": {}}
)

// IsVideoExt reports whether ext names a video container. Video transfers
// get the generous timeout tier and the largest chunk size.
func IsVideoExt(ext string) bool {
	_, ok := videoExts[strings.ToLower(ext)]
	return ok
}

// IsImageExt reports whether ext is on the album preview whitelist.
func IsImageExt(ext string) bool {
	_, ok := imageExts[strings.ToLower(ext)]
	return ok
}

// Timeouts returns the (connect, read) timeout tier for an extension.
func Timeouts(ext string) (connect, read time.Duration) {
	if IsVideoExt(ext) {
		return 15 * time.Second, 300 * time.Second
	}

	return 8 * time.Second, 30 * time.Second
}

// ChunkSize picks the copy buffer size for a transfer: large for video,
// medium for big files, small otherwise. totalSize may be 0 when the server
// did not announce a length.
func ChunkSize(ext string, totalSize int64) int {
	switch {
	case IsVideoExt(ext):
		return 16 * 1024
	case totalSize > largeFileThreshold:
		return 8 * 1024
	default:
		return 4 * 1024
	}
}

// Categorize buckets a file name for the mixed index. Audio files carrying
// the music suffix marker count as music.
func Categorize(fileName string) Category {
	lower := strings.ToLower(fileName)
	dot := strings.LastIndex(lower, ".")
	if dot < 0 {
		return CategoryOther
	}
	ext := lower[dot:]

	switch {
	case IsImageExt(ext):
		return CategoryImage
	case IsVideoExt(ext):
		return CategoryVideo
	default:
		if _, ok := audioExts[ext]; ok {
			if strings.Contains(lower, "_music") {
				return CategoryMusic
			}
			return CategoryAudio
		}
	}

	return CategoryOther
}
