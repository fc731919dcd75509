package fsutil

import (
	"os"

	"github.com/opencontainers/go-digest"
)

// Returns the lowercase hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	d, err := FileDigest(path)
	if err != nil {
		return "", err
	}
	return d.Encoded(), nil
}

// Returns the canonical digest of the file at path.
func FileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return digest.Canonical.FromReader(f)
}
