package vcs

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	changeTypeCreatedConstant           = "created"
	changeTypeModifiedConstant          = "modified"
	changeTypeDeletedConstant           = "deleted"
	changeTypeRenamedConstant           = "renamed"
	commitMessageFallbackConstant       = "Minor update"
	commitMessagePartTemplateConstant   = "%s %d: %s%s"
	commitMessagePartSeparatorConstant  = "; "
	commitMessageNameSeparatorConstant  = ", "
	commitMessageOverflowMarkerConstant = "..."
	commitMessageNameLimitConstant      = 5
	renameTemplateConstant              = "%s -> %s"
	nameStatusFieldSeparatorConstant    = "\x00"
	statusAddedPrefixConstant           = "A"
	statusModifiedPrefixConstant        = "M"
	statusDeletedPrefixConstant         = "D"
	statusRenamedPrefixConstant         = "R"
	statusCopiedPrefixConstant          = "C"
	statusTypeChangedPrefixConstant     = "T"
)

// ChangeSet groups staged paths by the kind of change.
type ChangeSet struct {
	Created  []string
	Modified []string
	Deleted  []string
	Renamed  []string
}

// Empty reports whether no category has entries.
func (changes ChangeSet) Empty() bool {
	return len(changes.Created) == 0 && len(changes.Modified) == 0 && len(changes.Deleted) == 0 && len(changes.Renamed) == 0
}

// GenerateCommitMessage summarizes each non-empty category as
// "{type} {count}: {up to five names}{...}" joined by "; ".
func GenerateCommitMessage(changes ChangeSet) string {
	categories := []struct {
		label string
		names []string
	}{
		{label: changeTypeCreatedConstant, names: changes.Created},
		{label: changeTypeModifiedConstant, names: changes.Modified},
		{label: changeTypeDeletedConstant, names: changes.Deleted},
		{label: changeTypeRenamedConstant, names: changes.Renamed},
	}

	parts := []string{}
	for _, category := range categories {
		if len(category.names) == 0 {
			continue
		}
		listed := category.names
		overflow := ""
		if len(listed) > commitMessageNameLimitConstant {
			listed = listed[:commitMessageNameLimitConstant]
			overflow = commitMessageOverflowMarkerConstant
		}
		parts = append(parts, fmt.Sprintf(commitMessagePartTemplateConstant, category.label, len(category.names), strings.Join(listed, commitMessageNameSeparatorConstant), overflow))
	}
	if len(parts) == 0 {
		return commitMessageFallbackConstant
	}
	return strings.Join(parts, commitMessagePartSeparatorConstant)
}

// ParseNameStatus classifies `git diff --cached --name-status -z` output:
// NUL-terminated fields where each status is followed by one path, or two for
// renames and copies. Paths matching any of the excluded doublestar patterns
// are left out; a rename is judged by its destination.
func ParseNameStatus(output string, excludedPatterns []string) ChangeSet {
	changes := ChangeSet{}
	fields := strings.Split(strings.TrimRight(output, nameStatusFieldSeparatorConstant), nameStatusFieldSeparatorConstant)
	for index := 0; index < len(fields); {
		status := strings.TrimSpace(fields[index])
		index++
		if len(status) == 0 {
			continue
		}
		pathCount := 1
		if strings.HasPrefix(status, statusRenamedPrefixConstant) || strings.HasPrefix(status, statusCopiedPrefixConstant) {
			pathCount = 2
		}
		if index+pathCount > len(fields) {
			break
		}
		paths := fields[index : index+pathCount]
		index += pathCount

		changedPath := paths[len(paths)-1]
		if excluded(changedPath, excludedPatterns) {
			continue
		}
		switch {
		case strings.HasPrefix(status, statusAddedPrefixConstant), strings.HasPrefix(status, statusCopiedPrefixConstant):
			changes.Created = append(changes.Created, changedPath)
		case strings.HasPrefix(status, statusModifiedPrefixConstant), strings.HasPrefix(status, statusTypeChangedPrefixConstant):
			changes.Modified = append(changes.Modified, changedPath)
		case strings.HasPrefix(status, statusDeletedPrefixConstant):
			changes.Deleted = append(changes.Deleted, changedPath)
		case strings.HasPrefix(status, statusRenamedPrefixConstant):
			changes.Renamed = append(changes.Renamed, fmt.Sprintf(renameTemplateConstant, paths[0], paths[1]))
		}
	}
	return changes
}

// excluded reports whether the path matches a pattern. Patterns are checked
// by NewOrchestrator, so a match error cannot occur for configured patterns.
func excluded(changedPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, changedPath); matched {
			return true
		}
	}
	return false
}
