// Package preview renders static HTML artifacts next to downloaded media:
// an album gallery (preview.html) and a mixed-content index (index.html).
// Rendering failures are never fatal to a download.
package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"sort"

	_ "embed"

	"github.com/jgivc/mediafetch/internal/media"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	AlbumFileName = "preview.html"
	IndexFileName = "index.html"
)

var (
	//go:embed templates/album.html
	albumTemplateContent []byte

	//go:embed templates/index.html
	indexTemplateContent []byte
)

// Meta carries the record metadata embedded into rendered pages.
type Meta struct {
	Name        string
	ID          string
	Platform    string
	Author      string
	Description string
}

type pageContext struct {
	Name            string
	Platform        string
	Author          string
	DescriptionHTML template.HTML
	Images          []string
	Videos          []string
	Audio           []string
	Music           []string
}

// Renderer writes preview artifacts. When the embedded templates fail to
// parse it falls back to hand-built HTML with identical output.
type Renderer struct {
	fs        afero.Fs
	albumTmpl *template.Template
	mixedTmpl *template.Template
	md        goldmark.Markdown
	log       *slog.Logger
}

func New(log *slog.Logger) *Renderer {
	return NewWithFS(afero.NewOsFs(), log)
}

func NewWithFS(fs afero.Fs, log *slog.Logger) *Renderer {
	r := &Renderer{
		fs: fs,
		md: goldmark.New(
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		log: log.With(slog.String("item", "PreviewRenderer")),
	}

	albumTmpl, err := template.New("album").Parse(string(albumTemplateContent))
	if err != nil {
		r.log.Error("Cannot parse album template, using fallback", slog.Any("error", err))
	} else {
		r.albumTmpl = albumTmpl
	}

	mixedTmpl, err := template.New("mixed").Parse(string(indexTemplateContent))
	if err != nil {
		r.log.Error("Cannot parse mixed template, using fallback", slog.Any("error", err))
	} else {
		r.mixedTmpl = mixedTmpl
	}

	return r
}

// RenderAlbumPreview scans dir for image files and writes preview.html
// referencing them, returning its path.
func (r *Renderer) RenderAlbumPreview(dir string, meta Meta) (string, error) {
	images, err := r.imageFiles(dir)
	if err != nil {
		return "", fmt.Errorf("cannot list album directory: %w", err)
	}
	if len(images) == 0 {
		return "", fmt.Errorf("no image files found in album directory %s", dir)
	}

	meta = r.fillFromSidecar(dir, meta)
	ctx := &pageContext{
		Name:            meta.Name,
		Platform:        orUnknown(meta.Platform),
		Author:          orUnknownAuthor(meta.Author),
		DescriptionHTML: r.renderDescription(meta.Description),
		Images:          images,
	}

	var content string
	if r.albumTmpl != nil {
		var buf bytes.Buffer
		if err := r.albumTmpl.Execute(&buf, ctx); err != nil {
			return "", fmt.Errorf("cannot render album template: %w", err)
		}
		content = buf.String()
	} else {
		r.log.Warn("Using fallback rendering for album preview")
		content = fallbackAlbum(ctx)
	}

	htmlPath := filepath.Join(dir, AlbumFileName)
	if err := afero.WriteFile(r.fs, htmlPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("cannot write album preview: %w", err)
	}

	return htmlPath, nil
}

// RenderMixedIndex groups the downloaded files of a mixed content folder by
// category and writes index.html, returning its path. Only files inside dir
// that still exist are listed; HTML artifacts are skipped.
func (r *Renderer) RenderMixedIndex(dir string, meta Meta, filePaths []string) (string, error) {
	meta = r.fillFromSidecar(dir, meta)
	ctx := &pageContext{
		Name:            meta.Name,
		Platform:        orUnknown(meta.Platform),
		Author:          orUnknownAuthor(meta.Author),
		DescriptionHTML: r.renderDescription(meta.Description),
	}

	grouped := 0
	for _, path := range filePaths {
		if filepath.Dir(path) != filepath.Clean(dir) {
			continue
		}
		if ok, _ := afero.Exists(r.fs, path); !ok {
			continue
		}

		name := filepath.Base(path)
		switch media.Categorize(name) {
		case media.CategoryImage:
			ctx.Images = append(ctx.Images, name)
		case media.CategoryVideo:
			ctx.Videos = append(ctx.Videos, name)
		case media.CategoryAudio:
			ctx.Audio = append(ctx.Audio, name)
		case media.CategoryMusic:
			ctx.Music = append(ctx.Music, name)
		default:
			continue
		}
		grouped++
	}

	if grouped == 0 {
		return "", fmt.Errorf("no media files found for index in directory %s", dir)
	}

	sort.Strings(ctx.Images)
	sort.Strings(ctx.Videos)
	sort.Strings(ctx.Audio)
	sort.Strings(ctx.Music)

	var content string
	if r.mixedTmpl != nil {
		var buf bytes.Buffer
		if err := r.mixedTmpl.Execute(&buf, ctx); err != nil {
			return "", fmt.Errorf("cannot render mixed template: %w", err)
		}
		content = buf.String()
	} else {
		r.log.Warn("Using fallback rendering for mixed content index")
		content = fallbackMixed(ctx)
	}

	htmlPath := filepath.Join(dir, IndexFileName)
	if err := afero.WriteFile(r.fs, htmlPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("cannot write mixed index: %w", err)
	}

	return htmlPath, nil
}

// fillFromSidecar completes missing metadata fields from the description.md
// sidecar, so a preview can be regenerated from the directory alone long
// after the record itself is gone.
func (r *Renderer) fillFromSidecar(dir string, meta Meta) Meta {
	if meta.Name != "" && meta.Platform != "" && meta.Author != "" && meta.Description != "" {
		return meta
	}

	stored, err := r.ReadSidecar(dir)
	if err != nil {
		return meta
	}

	if meta.Name == "" {
		meta.Name = stored.Name
	}
	if meta.ID == "" {
		meta.ID = stored.ID
	}
	if meta.Platform == "" {
		meta.Platform = stored.Platform
	}
	if meta.Author == "" {
		meta.Author = stored.Author
	}
	if meta.Description == "" {
		meta.Description = stored.Description
	}

	return meta
}

// renderDescription converts a Markdown description to embeddable HTML.
// A plain-text description comes out as a paragraph either way.
func (r *Renderer) renderDescription(desc string) template.HTML {
	if desc == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(desc), &buf); err != nil {
		r.log.Warn("Cannot render description markdown", slog.Any("error", err))

		return template.HTML(template.HTMLEscapeString(desc))
	}

	return template.HTML(buf.String())
}

func (r *Renderer) imageFiles(dir string) ([]string, error) {
	infos, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if media.IsImageExt(filepath.Ext(info.Name())) {
			images = append(images, info.Name())
		}
	}

	sort.Strings(images)

	return images, nil
}

func orUnknown(platform string) string {
	if platform == "" {
		return "unknown"
	}

	return platform
}

func orUnknownAuthor(author string) string {
	if author == "" {
		return "Unknown Author"
	}

	return author
}
