// Package digest computes content fingerprints used to detect drift between
// mirror files and stored metadata.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
)

const (
	fileDigestErrorTemplateConstant = "failed to digest %s: %w"
)

// Digest is a lowercase hex SHA-256 fingerprint.
type Digest string

// Absent marks content that does not exist. It never equals a computed digest.
const Absent Digest = ""

// FileReader reads whole files.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Bytes fingerprints raw bytes.
func Bytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// String fingerprints the UTF-8 encoding of text.
func String(text string) Digest {
	return Bytes([]byte(text))
}

// File fingerprints a file; a missing file yields Absent without an error.
func File(reader FileReader, path string) (Digest, error) {
	data, readError := reader.ReadFile(path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Absent, nil
		}
		return Absent, fmt.Errorf(fileDigestErrorTemplateConstant, path, readError)
	}
	return Bytes(data), nil
}

// Present reports whether the digest was computed from existing content.
func (value Digest) Present() bool {
	return value != Absent
}

// Matches reports whether two digests describe identical existing content.
func (value Digest) Matches(other Digest) bool {
	return value.Present() && other.Present() && value == other
}
