package archive

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/chmdznr/savannah/pkg/models"
)

// checksumKey is the user metadata key holding the BLAKE2b-256 digest.
const checksumKey = "checksum"

// Checksum returns the hex BLAKE2b-256 digest of r.
func Checksum(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileChecksum is Checksum over the contents of path.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := Checksum(f)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return sum, nil
}

// lookupMeta finds key in S3 user metadata, whose keys come back canonicalised.
func lookupMeta(meta map[string]string, key string) (string, bool) {
	for k, v := range meta {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == key {
			return v, true
		}
	}
	return "", false
}

// verifyDownload compares the file at path with the checksum in meta. Objects
// stored without a checksum are accepted as they are.
func verifyDownload(path string, meta map[string]string) error {
	want, ok := lookupMeta(meta, checksumKey)
	if !ok {
		return nil
	}
	got, err := FileChecksum(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w: got %s, want %s", models.ErrChecksumMismatch, got, want)
	}
	return nil
}
