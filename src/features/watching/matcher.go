package watching

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/denniswebb/mediacms/src/features/config"
)

// temp-file suffixes that writers leave behind mid-copy.
var ignoredSuffixes = []string{".tmp", ".part", ".partial", ".crdownload", ".download"}

// Matcher decides whether a filesystem path is eligible for import under
// one WatchSpec. It performs no I/O beyond a single lstat in Accept.
type Matcher struct {
	spec    *config.WatchSpec
	maxSize int64
}

// NewMatcher creates a Matcher for the given spec. maxSize of 0 disables
// the size ceiling.
func NewMatcher(spec *config.WatchSpec, maxSize int64) *Matcher {
	return &Matcher{spec: spec, maxSize: maxSize}
}

// EligibleName is the cheap, stat-free prefilter used on the hot event
// path: name conventions, extension allow-list, and recursion scope.
func (m *Matcher) EligibleName(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	lower := strings.ToLower(base)
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	if !m.spec.AllowsExtension(filepath.Ext(base)) {
		return false
	}
	return m.inScope(path)
}

// Accept decides whether path is eligible right now. It returns the reason
// for rejection, and the os.FileInfo from its single lstat so callers can
// reuse the size and mtime without another syscall.
//
// Symlinks are rejected outright: a link can point outside the watched
// tree, and importing through it would ingest content the operator never
// placed under the watch directory.
func (m *Matcher) Accept(path string) (os.FileInfo, bool, string) {
	if !m.EligibleName(path) {
		return nil, false, "name not eligible"
	}

	info, err := os.Lstat(path)
	if err != nil {
		return nil, false, "cannot stat: " + err.Error()
	}
	if info.IsDir() {
		return nil, false, "path is a directory"
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, false, "path is a symlink"
	}
	if !info.Mode().IsRegular() {
		return nil, false, "not a regular file"
	}
	if info.Size() == 0 {
		return nil, false, "file is empty"
	}
	if m.maxSize > 0 && info.Size() > m.maxSize {
		return nil, false, "file exceeds maximum size"
	}
	return info, true, ""
}

// inScope reports whether path sits inside the watched tree, honoring the
// spec's recursive flag.
func (m *Matcher) inScope(path string) bool {
	rel, err := filepath.Rel(m.spec.Path, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if !m.spec.Recursive && strings.ContainsRune(rel, filepath.Separator) {
		return false
	}
	return true
}
