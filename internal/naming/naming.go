// Package naming derives deterministic, filesystem-safe names for content
// items and their assets. Same record in, same name out: the skip-existing
// check and partial-download resume both rely on that.
package naming

import (
	"fmt"

	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/util"
)

const (
	maxDescriptionLength = 50
	maxAuthorLength      = 15
	maxAuthorDirLength   = 50

	unknownPlatform = "unknown"
)

// Namer builds names for one configured naming policy.
type Namer struct {
	useDescription bool
}

func New(useDescription bool) *Namer {
	return &Namer{useDescription: useDescription}
}

// BaseName returns the name stem shared by all files of a record: the
// sanitized description plus id when description naming applies, otherwise
// platform, optional author and id.
func (n *Namer) BaseName(rec *entity.ContentRecord) string {
	platform := rec.Platform
	if platform == "" {
		platform = unknownPlatform
	}

	if n.useDescription && rec.Description != "" {
		if desc := util.SanitizeFilename(rec.Description, maxDescriptionLength); desc != "" {
			return fmt.Sprintf("%s_%s", desc, rec.ID)
		}
	}

	authorPart := ""
	if rec.AuthorName != "" {
		authorPart = "_" + util.SanitizeFilename(rec.AuthorName, maxAuthorLength)
	}

	return fmt.Sprintf("%s%s_%s", platform, authorPart, rec.ID)
}

// AuthorDir returns the per-author subfolder name, or empty when author
// subfoldering does not apply to this record.
func (n *Namer) AuthorDir(rec *entity.ContentRecord) string {
	if !n.useDescription || rec.AuthorName == "" {
		return ""
	}

	return util.SanitizeFilename(rec.AuthorName, maxAuthorDirLength)
}

// IndexedName appends a 1-based, zero-padded position for multi-asset items.
func IndexedName(base string, index int) string {
	return fmt.Sprintf("%s_%03d", base, index+1)
}

// SuffixedName appends a literal kind tag for mixed content.
func SuffixedName(base, suffix string) string {
	return base + suffix
}

// FileName assembles the final file name from its parts. index is
// entity.NoIndex when the item has a single asset of this kind; suffix is
// empty outside mixed content.
func FileName(base string, index int, suffix, ext string) string {
	name := base
	if index != entity.NoIndex {
		name = IndexedName(name, index)
	}
	if suffix != "" {
		name = SuffixedName(name, suffix)
	}

	return name + ext
}
