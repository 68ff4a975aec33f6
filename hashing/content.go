// Package hashing computes content digests and perceptual fingerprints
// for files on an afero filesystem.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/spf13/afero"
)

// ContentDigest reads the full file and returns the hex-encoded SHA-256
// of its bytes. Byte-identical files always produce the same digest.
func ContentDigest(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
