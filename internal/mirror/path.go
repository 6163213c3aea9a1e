package mirror

import (
	"path"
	"regexp"
	"strings"
)

const (
	pathStringTemplateSeparatorConstant = "/"
	parentDirectoryConstant             = ".."
)

var metadataIdentifierPrefixPattern = regexp.MustCompile(`^\d+ - `)

// Path is a slash separated location relative to one of the mirror roots.
type Path struct {
	Root     string
	Relative string
}

// NewPath builds a cleaned mirror path.
func NewPath(root string, relative string) Path {
	return Path{Root: root, Relative: path.Clean(strings.ReplaceAll(relative, `\`, pathStringTemplateSeparatorConstant))}
}

// String renders root and relative path joined by a slash.
func (mirrorPath Path) String() string {
	return mirrorPath.Root + pathStringTemplateSeparatorConstant + mirrorPath.Relative
}

// Directory returns the relative directory containing the path, or "." at the root.
func (mirrorPath Path) Directory() string {
	return path.Dir(mirrorPath.Relative)
}

// Base returns the final path element.
func (mirrorPath Path) Base() string {
	return path.Base(mirrorPath.Relative)
}

// Extension returns the file extension including the dot.
func (mirrorPath Path) Extension() string {
	return path.Ext(mirrorPath.Relative)
}

// Stem returns the file name without extension.
func (mirrorPath Path) Stem() string {
	base := mirrorPath.Base()
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsMetadata reports whether the path names a metadata document.
func (mirrorPath Path) IsMetadata() bool {
	return strings.EqualFold(mirrorPath.Extension(), metadataExtensionConstant)
}

// Depth counts the directory levels below the root.
func (mirrorPath Path) Depth() int {
	if mirrorPath.Relative == "." {
		return 0
	}
	return strings.Count(mirrorPath.Relative, pathStringTemplateSeparatorConstant) + 1
}

// StripIdentifierPrefix removes the leading "{id} - " from a metadata file stem.
func StripIdentifierPrefix(stem string) string {
	return metadataIdentifierPrefixPattern.ReplaceAllString(stem, "")
}

func (mirrorPath Path) valid() bool {
	if len(mirrorPath.Root) == 0 || strings.Contains(mirrorPath.Root, pathStringTemplateSeparatorConstant) {
		return false
	}
	if path.IsAbs(mirrorPath.Relative) {
		return false
	}
	return mirrorPath.Relative != parentDirectoryConstant && !strings.HasPrefix(mirrorPath.Relative, parentDirectoryConstant+pathStringTemplateSeparatorConstant)
}
