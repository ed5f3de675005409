package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	importedSubdir   = "imported"
	duplicatesSubdir = "duplicates"
)

// Relocator is the infrastructure implementation of the
// importing.Relocator interface. It applies post-import policies: moving
// processed files out of the watched directory or deleting them.
type Relocator struct{}

// NewRelocator creates a new relocator implementation.
func NewRelocator() *Relocator {
	return &Relocator{}
}

// MoveProcessed moves a processed file into the processed directory, under
// imported/ or duplicates/ depending on the outcome. A name collision at the
// destination gets a timestamp suffix instead of overwriting.
func (r *Relocator) MoveProcessed(ctx context.Context, path, processedDir string, duplicate bool) (string, error) {
	subdir := importedSubdir
	if duplicate {
		subdir = duplicatesSubdir
	}

	destDir := filepath.Join(processedDir, subdir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(path))
	if _, err := os.Stat(destPath); err == nil {
		destPath = timestampedPath(destPath, time.Now())
	}

	if err := os.Rename(path, destPath); err != nil {
		// Rename fails across filesystems; fall back to copy and remove.
		if err := copyFile(path, destPath); err != nil {
			return "", fmt.Errorf("failed to copy file to processed directory: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("failed to remove original file after copy: %w", err)
		}
	}

	return destPath, nil
}

// Delete removes a processed file from the watched directory. A file that is
// already gone is not an error.
func (r *Relocator) Delete(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	slog.Debug("Relocator.Delete: removed processed file", "path", path)
	return nil
}

// timestampedPath appends _YYYYMMDD_HHMMSS before the extension so repeated
// filenames never clobber each other in the processed directory.
func timestampedPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s_%s%s", base, now.Format("20060102_150405"), ext)
}

func copyFile(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()
	_, err = io.Copy(destination, source)
	return err
}
