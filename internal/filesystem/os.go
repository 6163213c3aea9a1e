package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	temporaryFilePatternSuffixConstant  = ".tmp-*"
	temporaryFileCreateTemplateConstant = "failed to create temporary file in %s: %w"
	temporaryFileWriteTemplateConstant  = "failed to write temporary file %s: %w"
	temporaryFileCloseTemplateConstant  = "failed to close temporary file %s: %w"
	temporaryFileChmodTemplateConstant  = "failed to set permissions on %s: %w"
	temporaryFileRenameTemplateConstant = "failed to move %s into place: %w"
)

// OSFileSystem implements the mirror filesystem using operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadDir lists directory entries sorted by name.
func (OSFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}

// WalkDir walks the tree rooted at root.
func (OSFileSystem) WalkDir(root string, walkFunction fs.WalkDirFunc) error {
	return filepath.WalkDir(root, walkFunction)
}

// Remove deletes a file or an empty directory.
func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// WriteFile replaces the file atomically by writing a sibling temporary file and renaming it.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	directory := filepath.Dir(path)
	temporaryFile, createError := os.CreateTemp(directory, filepath.Base(path)+temporaryFilePatternSuffixConstant)
	if createError != nil {
		return fmt.Errorf(temporaryFileCreateTemplateConstant, directory, createError)
	}
	temporaryPath := temporaryFile.Name()

	if _, writeError := temporaryFile.Write(data); writeError != nil {
		_ = temporaryFile.Close()
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(temporaryFileWriteTemplateConstant, temporaryPath, writeError)
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(temporaryFileCloseTemplateConstant, temporaryPath, closeError)
	}
	if chmodError := os.Chmod(temporaryPath, permissions); chmodError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(temporaryFileChmodTemplateConstant, temporaryPath, chmodError)
	}
	if renameError := os.Rename(temporaryPath, path); renameError != nil {
		_ = os.Remove(temporaryPath)
		return fmt.Errorf(temporaryFileRenameTemplateConstant, path, renameError)
	}
	return nil
}

// IsNotExist reports whether the error describes a missing path.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
