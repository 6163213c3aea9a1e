package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	tildeSymbolConstant        = "~"
	forwardSlashSymbolConstant = "/"
	homeLookupFailedTemplate   = "cannot expand %q: %w"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander resolves "~" and "~/..." against the user's home directory.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand returns candidatePath with a leading home shortcut replaced. Paths
// such as "~other/x" are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if !strings.HasPrefix(trimmedPath, tildeSymbolConstant) {
		return trimmedPath, nil
	}
	remainder := strings.TrimPrefix(trimmedPath, tildeSymbolConstant)
	if len(remainder) > 0 && !strings.HasPrefix(remainder, forwardSlashSymbolConstant) && !strings.HasPrefix(remainder, string(os.PathSeparator)) {
		return trimmedPath, nil
	}

	homeDirectory, lookupError := expander.homeDirectoryProvider()
	if lookupError != nil {
		return "", fmt.Errorf(homeLookupFailedTemplate, candidatePath, lookupError)
	}
	return filepath.Join(homeDirectory, filepath.FromSlash(remainder)), nil
}
