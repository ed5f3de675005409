package media

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/unidecode"
)

// State controls the visibility of a media item once it lands in the CMS.
type State string

const (
	StatePublic   State = "public"
	StatePrivate  State = "private"
	StateUnlisted State = "unlisted"
)

// ValidStates lists the visibility states the sink accepts.
var ValidStates = []State{StatePublic, StatePrivate, StateUnlisted}

// IsValidState reports whether s is a visibility state the sink accepts.
// The empty string is valid and means "sink default".
func IsValidState(s string) bool {
	if s == "" {
		return true
	}
	for _, v := range ValidStates {
		if State(s) == v {
			return true
		}
	}
	return false
}

// ID is the identifier the sink assigns to a stored media item.
type ID string

// CreateRequest carries everything the sink needs to catalog one file.
// The file itself is referenced by path; the sink is responsible for
// reading and durably storing its content.
type CreateRequest struct {
	FilePath      string
	Title         string
	Description   string
	Owner         string
	State         State
	Channel       string
	Categories    []string
	Tags          []string
	AllowDownload *bool
	IsReviewed    *bool
}

// TitleFromPath derives a media title from a file path: the base name
// without extension, folded to ASCII so CMS titles stay portable.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.TrimSpace(unidecode.Unidecode(title))
	if title == "" {
		title = base
	}
	return title
}
