package preview

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderAlbumPreview(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/album/nested", 0o755))
	for _, name := range []string{"/album/b.png", "/album/a.jpg", "/album/notes.txt", "/album/nested/c.jpg"} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0o644))
	}

	r := NewWithFS(fs, testLogger())

	path, err := r.RenderAlbumPreview("/album", Meta{
		Name:        "trip_v1",
		Platform:    "tiktok",
		Author:      "walker",
		Description: "a **great** trip",
	})
	require.NoError(t, err)
	require.Equal(t, "/album/preview.html", path)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	page := string(content)
	require.Contains(t, page, `<img src="a.jpg"`)
	require.Contains(t, page, `<img src="b.png"`)
	require.NotContains(t, page, "notes.txt")
	require.NotContains(t, page, "c.jpg")
	require.Contains(t, page, "<title>trip_v1</title>")
	require.Contains(t, page, "Platform: tiktok")
	require.Contains(t, page, "Author: walker")
	require.Contains(t, page, "Album contains 2 images")
	require.Contains(t, page, "<strong>great</strong>")
}

func TestRenderAlbumPreviewNoImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/album", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/album/readme.txt", []byte("x"), 0o644))

	r := NewWithFS(fs, testLogger())

	_, err := r.RenderAlbumPreview("/album", Meta{Name: "empty"})
	require.Error(t, err)
}

func TestRenderAlbumPreviewDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/album/a.jpg", []byte("x"), 0o644))

	r := NewWithFS(fs, testLogger())

	path, err := r.RenderAlbumPreview("/album", Meta{Name: "n"})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Contains(t, string(content), "Platform: unknown")
	require.Contains(t, string(content), "Author: Unknown Author")
}

func TestRenderAlbumPreviewRebuildsFromSidecar(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/album/a.jpg", []byte("x"), 0o644))

	r := NewWithFS(fs, testLogger())
	require.NoError(t, r.WriteSidecar("/album", Meta{
		Name:        "trip_v1",
		ID:          "v1",
		Platform:    "tiktok",
		Author:      "walker",
		Description: "a **great** trip",
	}))

	path, err := r.RenderAlbumPreview("/album", Meta{})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	page := string(content)
	require.Contains(t, page, "<title>trip_v1</title>")
	require.Contains(t, page, "Platform: tiktok")
	require.Contains(t, page, "Author: walker")
	require.Contains(t, page, "<strong>great</strong>")
}

func TestRenderMixedIndexRebuildsFromSidecar(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mixed/x1_001_video.mp4", []byte("x"), 0o644))

	r := NewWithFS(fs, testLogger())
	require.NoError(t, r.WriteSidecar("/mixed", Meta{Name: "x1", Platform: "xiaohongshu", Author: "poster"}))

	path, err := r.RenderMixedIndex("/mixed", Meta{Author: "override"}, []string{"/mixed/x1_001_video.mp4"})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	page := string(content)
	require.Contains(t, page, "<title>x1</title>")
	require.Contains(t, page, "Platform: xiaohongshu")
	require.Contains(t, page, "Author: override")
}

func TestRenderMixedIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := []string{
		"/mixed/trip_v1_001_video.mp4",
		"/mixed/trip_v1_001_image.jpg",
		"/mixed/trip_v1_002_image.jpg",
		"/mixed/trip_v1_001_audio.m4a",
		"/mixed/trip_v1_001_music.mp3",
	}
	for _, name := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte("x"), 0o644))
	}

	r := NewWithFS(fs, testLogger())

	listed := append([]string{}, files...)
	listed = append(listed,
		"/elsewhere/other.mp4",    // outside the folder
		"/mixed/trip_v1_gone.jpg", // never downloaded
	)

	path, err := r.RenderMixedIndex("/mixed", Meta{Name: "trip_v1", Platform: "xiaohongshu"}, listed)
	require.NoError(t, err)
	require.Equal(t, "/mixed/index.html", path)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	page := string(content)
	require.Contains(t, page, "Videos (1)")
	require.Contains(t, page, "Images (2)")
	require.Contains(t, page, "Audio (1)")
	require.Contains(t, page, "Music (1)")
	require.Contains(t, page, "trip_v1_001_music.mp3")
	require.NotContains(t, page, "other.mp4")
	require.NotContains(t, page, "trip_v1_gone.jpg")
}

func TestRenderMixedIndexNoFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mixed", 0o755))

	r := NewWithFS(fs, testLogger())

	_, err := r.RenderMixedIndex("/mixed", Meta{Name: "n"}, []string{"/mixed/missing.jpg"})
	require.Error(t, err)
}

func TestFallbackAlbumMatchesTemplateContent(t *testing.T) {
	ctx := &pageContext{
		Name:     "trip<script>",
		Platform: "tiktok",
		Author:   "walker",
		Images:   []string{"a.jpg", "b.png"},
	}

	page := fallbackAlbum(ctx)
	require.Contains(t, page, "trip&lt;script&gt;")
	require.Contains(t, page, `<img src="a.jpg"`)
	require.Contains(t, page, "Album contains 2 images")
	require.NotContains(t, page, "<script>")
}

func TestFallbackMixedSections(t *testing.T) {
	ctx := &pageContext{
		Name:   "trip",
		Videos: []string{"v_video.mp4"},
		Music:  []string{"m_music.mp3"},
	}

	page := fallbackMixed(ctx)
	require.Contains(t, page, "Videos (1)")
	require.Contains(t, page, "Music (1)")
	require.Contains(t, page, "Download Video")
	require.Contains(t, page, "Download Music")
	require.NotContains(t, page, "Images")
	require.NotContains(t, page, "Audio (")
}
