// Package cleanup removes mirror files that no longer correspond to a remote entity.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/mirror"
)

const (
	storeNotConfiguredMessageConstant    = "cleaner requires a mirror store"
	invalidKeepPatternTemplateConstant   = "%w: %q"
	rootSkippedMessageConstant           = "remote listing incomplete, leaving folder untouched"
	listFailedMessageConstant            = "failed to list mirror folder"
	fileRemoveFailedMessageConstant      = "failed to delete obsolete file"
	fileKeptMessageConstant              = "file matches keep pattern, leaving in place"
	directoryCheckFailedMessageConstant  = "failed to inspect directory"
	directoryRemoveFailedMessageConstant = "failed to remove empty directory"
	cleanupCompletedMessageConstant      = "cleanup finished"
	logFieldRootConstant                 = "root"
	logFieldPathConstant                 = "path"
	logFieldFilesRemovedConstant         = "files_removed"
	logFieldDirectoriesRemovedConstant   = "directories_removed"
	logFieldKeptConstant                 = "kept"
	logFieldSkippedRootsConstant         = "skipped_roots"
	logFieldFailuresConstant             = "failures"
)

// ErrStoreNotConfigured indicates the cleaner was created without a mirror store.
var ErrStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)

// ErrInvalidKeepPattern indicates a keep pattern is not a valid glob.
var ErrInvalidKeepPattern = errors.New("invalid keep pattern")

// Membership answers which mirror paths are still owned by a remote entity.
type Membership interface {
	Contains(mirrorPath mirror.Path) bool
	IsIncomplete(rootName string) bool
}

// Dependencies wires collaborators into a Cleaner.
type Dependencies struct {
	Store  *mirror.Store
	Logger *zap.Logger
}

// Options control what the cleaner leaves alone.
type Options struct {
	// KeepPatterns are doublestar globs matched against "root/relative" paths.
	KeepPatterns []string
}

// Summary counts the outcomes of a cleanup pass.
type Summary struct {
	FilesRemoved       int
	DirectoriesRemoved int
	Kept               int
	SkippedRoots       int
	Failures           int
}

// Cleaner deletes obsolete files and the directories they leave empty.
type Cleaner struct {
	store        *mirror.Store
	logger       *zap.Logger
	keepPatterns []string
}

// NewCleaner validates dependencies and keep patterns.
func NewCleaner(dependencies Dependencies, options Options) (*Cleaner, error) {
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	for _, pattern := range options.KeepPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf(invalidKeepPatternTemplateConstant, ErrInvalidKeepPattern, pattern)
		}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{
		store:        dependencies.Store,
		logger:       logger,
		keepPatterns: append([]string{}, options.KeepPatterns...),
	}, nil
}

// Clean walks each root, deletes files that are not members and then removes
// empty directories deepest first. The roots themselves are never removed.
// Failures are logged and counted; only context cancellation stops the pass.
func (cleaner *Cleaner) Clean(executionContext context.Context, roots []string, membership Membership) (Summary, error) {
	summary := Summary{}
	for _, rootName := range roots {
		if contextError := executionContext.Err(); contextError != nil {
			return summary, contextError
		}
		if membership.IsIncomplete(rootName) {
			cleaner.logger.Warn(rootSkippedMessageConstant, zap.String(logFieldRootConstant, rootName))
			summary.SkippedRoots++
			continue
		}
		cleaner.cleanRoot(rootName, membership, &summary)
	}
	cleaner.logger.Info(cleanupCompletedMessageConstant,
		zap.Int(logFieldFilesRemovedConstant, summary.FilesRemoved),
		zap.Int(logFieldDirectoriesRemovedConstant, summary.DirectoriesRemoved),
		zap.Int(logFieldKeptConstant, summary.Kept),
		zap.Int(logFieldSkippedRootsConstant, summary.SkippedRoots),
		zap.Int(logFieldFailuresConstant, summary.Failures),
	)
	return summary, executionContext.Err()
}

func (cleaner *Cleaner) cleanRoot(rootName string, membership Membership, summary *Summary) {
	rootField := zap.String(logFieldRootConstant, rootName)
	files, listError := cleaner.store.ListFiles(rootName)
	if listError != nil {
		cleaner.logger.Error(listFailedMessageConstant, rootField, zap.Error(listError))
		summary.Failures++
		return
	}

	// removed also tracks simulated deletions so a dry run reports the same
	// directories a real run would remove.
	removed := map[mirror.Path]struct{}{}
	for _, filePath := range files {
		if membership.Contains(filePath) {
			continue
		}
		if cleaner.kept(filePath) {
			cleaner.logger.Debug(fileKeptMessageConstant, zap.String(logFieldPathConstant, filePath.String()))
			summary.Kept++
			continue
		}
		if removeError := cleaner.store.RemoveFile(filePath); removeError != nil {
			cleaner.logger.Warn(fileRemoveFailedMessageConstant, zap.String(logFieldPathConstant, filePath.String()), zap.Error(removeError))
			summary.Failures++
			continue
		}
		removed[filePath] = struct{}{}
		summary.FilesRemoved++
	}

	directories, listDirectoriesError := cleaner.store.ListDirectories(rootName)
	if listDirectoriesError != nil {
		cleaner.logger.Error(listFailedMessageConstant, rootField, zap.Error(listDirectoriesError))
		summary.Failures++
		return
	}
	sort.Slice(directories, func(left int, right int) bool {
		if directories[left].Depth() != directories[right].Depth() {
			return directories[left].Depth() > directories[right].Depth()
		}
		return directories[left].Relative > directories[right].Relative
	})
	for _, directoryPath := range directories {
		pathField := zap.String(logFieldPathConstant, directoryPath.String())
		empty, checkError := cleaner.store.IsEmptyDirectory(directoryPath, removed)
		if checkError != nil {
			cleaner.logger.Warn(directoryCheckFailedMessageConstant, pathField, zap.Error(checkError))
			summary.Failures++
			continue
		}
		if !empty {
			continue
		}
		if removeError := cleaner.store.RemoveDirectory(directoryPath); removeError != nil {
			cleaner.logger.Warn(directoryRemoveFailedMessageConstant, pathField, zap.Error(removeError))
			summary.Failures++
			continue
		}
		removed[directoryPath] = struct{}{}
		summary.DirectoriesRemoved++
	}
}

func (cleaner *Cleaner) kept(filePath mirror.Path) bool {
	for _, pattern := range cleaner.keepPatterns {
		if matched, _ := doublestar.Match(pattern, filePath.String()); matched {
			return true
		}
	}
	return false
}
