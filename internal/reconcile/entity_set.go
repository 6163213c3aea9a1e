package reconcile

import (
	"sort"

	"github.com/temirov/rmmsync/internal/mirror"
)

// EntitySet is the set of mirror paths produced or retained by one export pass.
// Roots whose listing failed are marked incomplete and must not be cleaned.
type EntitySet struct {
	paths           map[mirror.Path]struct{}
	incompleteRoots map[string]struct{}
}

// NewEntitySet constructs an empty set.
func NewEntitySet() *EntitySet {
	return &EntitySet{
		paths:           map[mirror.Path]struct{}{},
		incompleteRoots: map[string]struct{}{},
	}
}

// Add records a path. It reports false when the path was already present.
func (set *EntitySet) Add(mirrorPath mirror.Path) bool {
	if _, exists := set.paths[mirrorPath]; exists {
		return false
	}
	set.paths[mirrorPath] = struct{}{}
	return true
}

// Contains reports whether the path is part of the set.
func (set *EntitySet) Contains(mirrorPath mirror.Path) bool {
	_, exists := set.paths[mirrorPath]
	return exists
}

// Len returns the number of recorded paths.
func (set *EntitySet) Len() int {
	return len(set.paths)
}

// Paths returns the recorded paths in a stable order.
func (set *EntitySet) Paths() []mirror.Path {
	paths := make([]mirror.Path, 0, len(set.paths))
	for mirrorPath := range set.paths {
		paths = append(paths, mirrorPath)
	}
	sort.Slice(paths, func(left int, right int) bool {
		if paths[left].Root != paths[right].Root {
			return paths[left].Root < paths[right].Root
		}
		return paths[left].Relative < paths[right].Relative
	})
	return paths
}

// MarkIncomplete flags a root whose remote listing could not be read.
func (set *EntitySet) MarkIncomplete(rootName string) {
	set.incompleteRoots[rootName] = struct{}{}
}

// IsIncomplete reports whether a root was flagged by MarkIncomplete.
func (set *EntitySet) IsIncomplete(rootName string) bool {
	_, incomplete := set.incompleteRoots[rootName]
	return incomplete
}
