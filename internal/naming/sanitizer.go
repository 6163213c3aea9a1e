// Package naming turns remote display names into filesystem-safe path segments.
package naming

import (
	"strings"
)

const (
	nullCharacterConstant      = '\x00'
	nullCharacterLabelConstant = `\0`
	invalidCharactersConstant  = `<>:"/\|?*`
)

// Result describes a sanitized name and the characters removed from it.
type Result struct {
	Clean   string
	Removed []string
}

// Changed reports whether sanitization removed anything other than surrounding whitespace.
func (result Result) Changed() bool {
	return len(result.Removed) > 0
}

// Sanitize strips characters that are invalid in file names on common platforms
// and trims surrounding whitespace. It never fails and is idempotent.
func Sanitize(name string) Result {
	var builder strings.Builder
	builder.Grow(len(name))

	var removed []string
	nullRemoved := false
	for _, character := range name {
		switch {
		case character == nullCharacterConstant:
			nullRemoved = true
		case strings.ContainsRune(invalidCharactersConstant, character):
			removed = append(removed, string(character))
		default:
			builder.WriteRune(character)
		}
	}

	if nullRemoved {
		removed = append([]string{nullCharacterLabelConstant}, removed...)
	}

	return Result{Clean: strings.TrimSpace(builder.String()), Removed: removed}
}

// Clean is a convenience wrapper returning only the sanitized name.
func Clean(name string) string {
	return Sanitize(name).Clean
}
