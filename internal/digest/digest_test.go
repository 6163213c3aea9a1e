package digest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rmmsync/internal/digest"
)

type osReader struct{}

func (osReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func TestDigestOfKnownInputs(testInstance *testing.T) {
	require.Equal(testInstance, digest.Digest("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"), digest.String(""))
	require.Equal(testInstance, digest.Digest("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"), digest.Bytes([]byte("hello")))
	require.Equal(testInstance, digest.String("héllo"), digest.Bytes([]byte("héllo")))
}

func TestFileDigestMatchesContent(testInstance *testing.T) {
	directory := testInstance.TempDir()
	filePath := filepath.Join(directory, "script.ps1")
	require.NoError(testInstance, os.WriteFile(filePath, []byte("Write-Host 1"), 0o644))

	fileDigest, digestError := digest.File(osReader{}, filePath)
	require.NoError(testInstance, digestError)
	require.True(testInstance, fileDigest.Matches(digest.String("Write-Host 1")))
}

func TestMissingFileIsAbsent(testInstance *testing.T) {
	missingDigest, digestError := digest.File(osReader{}, filepath.Join(testInstance.TempDir(), "missing.txt"))
	require.NoError(testInstance, digestError)
	require.False(testInstance, missingDigest.Present())
	require.False(testInstance, missingDigest.Matches(digest.Absent))
	require.False(testInstance, missingDigest.Matches(digest.String("")))
}
