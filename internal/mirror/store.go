package mirror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rmmsync/internal/digest"
	"github.com/temirov/rmmsync/internal/entity"
	"github.com/temirov/rmmsync/internal/filesystem"
)

const (
	metadataExtensionConstant               = ".json"
	metadataFileNameTemplateConstant        = "%s - %s" + metadataExtensionConstant
	metadataIndentConstant                  = "    "
	directoryPermissionsConstant            = fs.FileMode(0o755)
	filePermissionsConstant                 = fs.FileMode(0o644)
	rootRequiredMessageConstant             = "mirror root must be provided"
	relativePathInvalidTemplateConstant     = "%w: %q"
	directoryCreateErrorTemplateConstant    = "failed to create directory %s: %w"
	fileWriteErrorTemplateConstant          = "failed to write %s: %w"
	fileReadErrorTemplateConstant           = "failed to read %s: %w"
	fileRemoveErrorTemplateConstant         = "failed to remove %s: %w"
	metadataEncodeErrorTemplateConstant     = "failed to encode metadata for %s: %w"
	metadataDecodeErrorTemplateConstant     = "failed to decode metadata %s: %w"
	walkErrorTemplateConstant               = "failed to walk %s: %w"
	fileSavedMessageConstant                = "file saved"
	fileSimulatedMessageConstant            = "[dry-run] would save file"
	fileRemovedMessageConstant              = "file deleted"
	fileRemoveSimulatedMessageConstant      = "[dry-run] would delete file"
	directoryRemovedMessageConstant         = "empty directory removed"
	directoryRemoveSimulatedMessageConstant = "[dry-run] would remove empty directory"
	layoutCreatedMessageConstant            = "mirror folder ready"
	layoutSimulatedMessageConstant          = "[dry-run] would create mirror folder"
	logFieldPathConstant                    = "path"
	logFieldBytesConstant                   = "bytes"
)

// ErrRootRequired indicates the store was created without a mirror root.
var ErrRootRequired = errors.New(rootRequiredMessageConstant)

// ErrPathEscapesRoot indicates a relative path resolved outside its mirror root.
var ErrPathEscapesRoot = errors.New("mirror path escapes its root")

// FileSystem exposes the filesystem operations the store relies on.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	WalkDir(root string, walkFunction fs.WalkDirFunc) error
	Remove(path string) error
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// Options configure a Store.
type Options struct {
	Root       string
	DryRun     bool
	FileSystem FileSystem
	Logger     *zap.Logger
}

// Store reads and writes the on-disk mirror.
type Store struct {
	root       string
	dryRun     bool
	fileSystem FileSystem
	logger     *zap.Logger
}

// NewStore validates options and constructs a Store.
func NewStore(options Options) (*Store, error) {
	trimmedRoot := strings.TrimSpace(options.Root)
	if len(trimmedRoot) == 0 {
		return nil, ErrRootRequired
	}
	fileSystem := options.FileSystem
	if fileSystem == nil {
		fileSystem = filesystem.OSFileSystem{}
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:       filepath.Clean(trimmedRoot),
		dryRun:     options.DryRun,
		fileSystem: fileSystem,
		logger:     logger,
	}, nil
}

// Root returns the mirror root directory.
func (store *Store) Root() string {
	return store.root
}

// DryRun reports whether writes are simulated.
func (store *Store) DryRun() bool {
	return store.dryRun
}

// ContentPath computes the content file location for sanitized entity fields.
func (store *Store) ContentPath(descriptor entity.KindDescriptor, category string, name string, shell entity.Shell) Path {
	return NewPath(descriptor.ContentRoot, joinRelative(category, name+shell.Extension()))
}

// MetadataPath computes the metadata file location for sanitized entity fields.
func (store *Store) MetadataPath(descriptor entity.KindDescriptor, category string, identifier string, name string) Path {
	return NewPath(descriptor.MetadataRoot, joinRelative(category, fmt.Sprintf(metadataFileNameTemplateConstant, identifier, name)))
}

// Absolute resolves a mirror path to an absolute filesystem location.
func (store *Store) Absolute(mirrorPath Path) (string, error) {
	if !mirrorPath.valid() {
		return "", fmt.Errorf(relativePathInvalidTemplateConstant, ErrPathEscapesRoot, mirrorPath.String())
	}
	return filepath.Join(store.root, mirrorPath.Root, filepath.FromSlash(mirrorPath.Relative)), nil
}

// RootDirectory returns the absolute path of a mirror root.
func (store *Store) RootDirectory(rootName string) string {
	return filepath.Join(store.root, rootName)
}

// Exists reports whether a regular file is present at the mirror path.
func (store *Store) Exists(mirrorPath Path) bool {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return false
	}
	fileInfo, statError := store.fileSystem.Stat(absolutePath)
	return statError == nil && fileInfo.Mode().IsRegular()
}

// ReadContent returns the bytes and digest of a content file. A missing file
// yields nil content and digest.Absent without an error.
func (store *Store) ReadContent(mirrorPath Path) ([]byte, digest.Digest, error) {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return nil, digest.Absent, resolveError
	}
	content, readError := store.fileSystem.ReadFile(absolutePath)
	if readError != nil {
		if filesystem.IsNotExist(readError) {
			return nil, digest.Absent, nil
		}
		return nil, digest.Absent, fmt.Errorf(fileReadErrorTemplateConstant, absolutePath, readError)
	}
	return content, digest.Bytes(content), nil
}

// ReadMetadata decodes a metadata file.
func (store *Store) ReadMetadata(mirrorPath Path) (entity.Payload, error) {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return nil, resolveError
	}
	content, readError := store.fileSystem.ReadFile(absolutePath)
	if readError != nil {
		return nil, fmt.Errorf(fileReadErrorTemplateConstant, absolutePath, readError)
	}
	payload, decodeError := entity.DecodePayload(content)
	if decodeError != nil {
		return nil, fmt.Errorf(metadataDecodeErrorTemplateConstant, absolutePath, decodeError)
	}
	return payload, nil
}

// WriteContent stores raw content bytes.
func (store *Store) WriteContent(mirrorPath Path, content []byte) error {
	return store.writeFile(mirrorPath, content)
}

// WriteMetadata stores the payload as pretty printed JSON.
func (store *Store) WriteMetadata(mirrorPath Path, payload entity.Payload) error {
	encoded, encodeError := EncodeMetadata(payload)
	if encodeError != nil {
		return fmt.Errorf(metadataEncodeErrorTemplateConstant, mirrorPath.String(), encodeError)
	}
	return store.writeFile(mirrorPath, encoded)
}

// EncodeMetadata renders a payload with sorted keys, four space indentation and
// unescaped HTML characters so repeated exports are byte-identical.
func EncodeMetadata(payload entity.Payload) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", metadataIndentConstant)
	if encodeError := encoder.Encode(payload); encodeError != nil {
		return nil, encodeError
	}
	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}

// EnsureLayout creates the mirror root and the roots of every descriptor.
func (store *Store) EnsureLayout(descriptors []entity.KindDescriptor) error {
	directories := []string{store.root}
	for _, descriptor := range descriptors {
		for _, rootName := range descriptor.Roots() {
			directories = append(directories, store.RootDirectory(rootName))
		}
	}
	for _, directory := range directories {
		if store.dryRun {
			store.logger.Info(layoutSimulatedMessageConstant, zap.String(logFieldPathConstant, directory))
			continue
		}
		if mkdirError := store.fileSystem.MkdirAll(directory, directoryPermissionsConstant); mkdirError != nil {
			return fmt.Errorf(directoryCreateErrorTemplateConstant, directory, mkdirError)
		}
		store.logger.Debug(layoutCreatedMessageConstant, zap.String(logFieldPathConstant, directory))
	}
	return nil
}

// ListFiles returns every regular file under a mirror root in lexical order.
// A missing root yields an empty list.
func (store *Store) ListFiles(rootName string) ([]Path, error) {
	files := []Path{}
	walkError := store.walk(rootName, func(relativePath string, entry fs.DirEntry) {
		if entry.Type().IsRegular() {
			files = append(files, NewPath(rootName, relativePath))
		}
	})
	if walkError != nil {
		return nil, walkError
	}
	sort.Slice(files, func(left int, right int) bool { return files[left].Relative < files[right].Relative })
	return files, nil
}

// ListDirectories returns every directory below a mirror root, excluding the root itself.
func (store *Store) ListDirectories(rootName string) ([]Path, error) {
	directories := []Path{}
	walkError := store.walk(rootName, func(relativePath string, entry fs.DirEntry) {
		if entry.IsDir() {
			directories = append(directories, NewPath(rootName, relativePath))
		}
	})
	if walkError != nil {
		return nil, walkError
	}
	return directories, nil
}

// RemoveFile deletes a file from the mirror.
func (store *Store) RemoveFile(mirrorPath Path) error {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return resolveError
	}
	if store.dryRun {
		store.logger.Info(fileRemoveSimulatedMessageConstant, zap.String(logFieldPathConstant, absolutePath))
		return nil
	}
	if removeError := store.fileSystem.Remove(absolutePath); removeError != nil {
		return fmt.Errorf(fileRemoveErrorTemplateConstant, absolutePath, removeError)
	}
	store.logger.Info(fileRemovedMessageConstant, zap.String(logFieldPathConstant, absolutePath))
	return nil
}

// IsEmptyDirectory reports whether the directory has no entries. Entries
// listed in ignored count as already removed.
func (store *Store) IsEmptyDirectory(mirrorPath Path, ignored map[Path]struct{}) (bool, error) {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return false, resolveError
	}
	entries, readError := store.fileSystem.ReadDir(absolutePath)
	if readError != nil {
		return false, fmt.Errorf(fileReadErrorTemplateConstant, absolutePath, readError)
	}
	for _, directoryEntry := range entries {
		childPath := NewPath(mirrorPath.Root, path.Join(mirrorPath.Relative, directoryEntry.Name()))
		if _, skip := ignored[childPath]; skip {
			continue
		}
		return false, nil
	}
	return true, nil
}

// RemoveDirectory removes an empty directory from the mirror.
func (store *Store) RemoveDirectory(mirrorPath Path) error {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return resolveError
	}
	if store.dryRun {
		store.logger.Info(directoryRemoveSimulatedMessageConstant, zap.String(logFieldPathConstant, absolutePath))
		return nil
	}
	if removeError := store.fileSystem.Remove(absolutePath); removeError != nil {
		return fmt.Errorf(fileRemoveErrorTemplateConstant, absolutePath, removeError)
	}
	store.logger.Info(directoryRemovedMessageConstant, zap.String(logFieldPathConstant, absolutePath))
	return nil
}

func (store *Store) writeFile(mirrorPath Path, content []byte) error {
	absolutePath, resolveError := store.Absolute(mirrorPath)
	if resolveError != nil {
		return resolveError
	}
	if store.dryRun {
		store.logger.Info(fileSimulatedMessageConstant, zap.String(logFieldPathConstant, absolutePath), zap.Int(logFieldBytesConstant, len(content)))
		return nil
	}
	directory := filepath.Dir(absolutePath)
	if mkdirError := store.fileSystem.MkdirAll(directory, directoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(directoryCreateErrorTemplateConstant, directory, mkdirError)
	}
	if writeError := store.fileSystem.WriteFile(absolutePath, content, filePermissionsConstant); writeError != nil {
		return fmt.Errorf(fileWriteErrorTemplateConstant, absolutePath, writeError)
	}
	store.logger.Info(fileSavedMessageConstant, zap.String(logFieldPathConstant, absolutePath), zap.Int(logFieldBytesConstant, len(content)))
	return nil
}

func (store *Store) walk(rootName string, visit func(relativePath string, entry fs.DirEntry)) error {
	rootDirectory := store.RootDirectory(rootName)
	if _, statError := store.fileSystem.Stat(rootDirectory); statError != nil {
		if filesystem.IsNotExist(statError) {
			return nil
		}
		return fmt.Errorf(walkErrorTemplateConstant, rootDirectory, statError)
	}
	walkError := store.fileSystem.WalkDir(rootDirectory, func(currentPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if currentPath == rootDirectory {
			return nil
		}
		relativePath, relativeError := filepath.Rel(rootDirectory, currentPath)
		if relativeError != nil {
			return relativeError
		}
		visit(filepath.ToSlash(relativePath), entry)
		return nil
	})
	if walkError != nil {
		return fmt.Errorf(walkErrorTemplateConstant, rootDirectory, walkError)
	}
	return nil
}

func joinRelative(category string, fileName string) string {
	if len(category) == 0 {
		return fileName
	}
	return path.Join(category, fileName)
}
