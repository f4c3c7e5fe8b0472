package preview

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
	"gopkg.in/yaml.v2"
)

// SidecarFileName is the metadata file written next to album and mixed
// downloads so previews can be rebuilt without the original record.
const SidecarFileName = "description.md"

type sidecarMeta struct {
	Title    string `yaml:"title"`
	ID       string `yaml:"id"`
	Platform string `yaml:"platform"`
	Author   string `yaml:"author"`
}

// WriteSidecar stores the record metadata as YAML frontmatter with the
// description as Markdown body.
func (r *Renderer) WriteSidecar(dir string, meta Meta) error {
	fm, err := yaml.Marshal(sidecarMeta{
		Title:    meta.Name,
		ID:       meta.ID,
		Platform: meta.Platform,
		Author:   meta.Author,
	})
	if err != nil {
		return fmt.Errorf("cannot marshal sidecar frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	if meta.Description != "" {
		buf.WriteString("\n")
		buf.WriteString(meta.Description)
		buf.WriteString("\n")
	}

	return afero.WriteFile(r.fs, filepath.Join(dir, SidecarFileName), buf.Bytes(), 0o644)
}

// ReadSidecar loads a previously written sidecar back into a Meta. The body
// is returned as raw Markdown in Meta.Description.
func (r *Renderer) ReadSidecar(dir string) (Meta, error) {
	src, err := afero.ReadFile(r.fs, filepath.Join(dir, SidecarFileName))
	if err != nil {
		return Meta{}, err
	}

	md := goldmark.New(
		goldmark.WithExtensions(&frontmatter.Extender{}),
	)

	var buf bytes.Buffer
	ctx := parser.NewContext()
	if err := md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return Meta{}, fmt.Errorf("cannot parse sidecar: %w", err)
	}

	var fm sidecarMeta
	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(&fm); err != nil {
			return Meta{}, fmt.Errorf("cannot decode sidecar frontmatter: %w", err)
		}
	}

	body := bytes.TrimSpace(frontmatterBody(src))

	return Meta{
		Name:        fm.Title,
		ID:          fm.ID,
		Platform:    fm.Platform,
		Author:      fm.Author,
		Description: string(body),
	}, nil
}

// frontmatterBody strips a leading `---` block, returning the Markdown body.
func frontmatterBody(src []byte) []byte {
	delim := []byte("---\n")
	if !bytes.HasPrefix(src, delim) {
		return src
	}

	rest := src[len(delim):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return src
	}

	body := rest[end+len("\n---"):]
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	}

	return body
}
