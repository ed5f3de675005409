package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize bounds memory per hashed file regardless of file size.
const chunkSize = 64 * 1024

// Service computes SHA-256 content fingerprints by streaming files in
// fixed-size chunks. SHA-256 is collision resistant, so two distinct files
// never silently share a dedup key.
type Service struct{}

// NewService creates a new fingerprint service.
func NewService() *Service {
	return &Service{}
}

// Fingerprint hashes the file at path. The file is stat'd before and after
// the read: a size or mtime drift means a writer raced us, and the result
// would be a hash of a torn read, so it is reported as an error instead.
func (s *Service) Fingerprint(ctx context.Context, path string) (string, error) {
	before, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file not readable before hashing: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read failed while hashing: %w", err)
		}
	}

	after, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("file vanished while hashing: %w", err)
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) {
		return "", fmt.Errorf("file changed while hashing: size %d -> %d", before.Size(), after.Size())
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
