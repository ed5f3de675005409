package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Watch    Watch    `yaml:"watch" validate:"required"`
	Import   Import   `yaml:"import"`
	Sink     Sink     `yaml:"sink" validate:"required"`
	Ledger   Ledger   `yaml:"ledger" validate:"required"`
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Telegram Telegram `yaml:"telegram"`
}

// Watch holds the two configuration surfaces for monitored directories.
// Directories is the full per-directory form; Simple is a flat shorthand.
// Both resolve into the same []WatchSpec via Manager.WatchSpecs.
type Watch struct {
	Directories []DirectoryConfig `yaml:"directories" validate:"dive"`
	Simple      Simple            `yaml:"simple"`
}

// DirectoryConfig is one fully specified monitored directory.
type DirectoryConfig struct {
	Path              string   `yaml:"path" validate:"required"`
	Name              string   `yaml:"name"`
	Owner             string   `yaml:"owner" validate:"required"`
	Recursive         *bool    `yaml:"recursive"` // default true
	Extensions        []string `yaml:"extensions"`
	State             string   `yaml:"state"`
	AllowDownload     *bool    `yaml:"allow_download"`
	IsReviewed        *bool    `yaml:"is_reviewed"`
	Channel           string   `yaml:"channel"`
	Categories        []string `yaml:"categories"`
	Tags              []string `yaml:"tags"`
	Description       string   `yaml:"description"`
	DeleteAfterImport bool     `yaml:"delete_after_import"`
	ProcessedDir      string   `yaml:"processed_dir"`
}

// Simple is the shorthand surface: a directory list sharing one owner and
// one set of import options.
type Simple struct {
	Directories     []string `yaml:"directories"`
	Owner           string   `yaml:"owner"`
	DebounceSeconds int      `yaml:"debounce_seconds"`
	Extensions      []string `yaml:"extensions"`
	State           string   `yaml:"state"`
	ProcessedDir    string   `yaml:"processed_dir"`
}

// Import holds the knobs shared by every watch directory.
type Import struct {
	DebounceSeconds int    `yaml:"debounce_seconds"`
	ScanSeconds     int    `yaml:"scan_seconds"`
	MaxFileSize     int64  `yaml:"max_file_size"`
	MaxRetries      int    `yaml:"max_retries"`
	Parallelism     int    `yaml:"parallelism"`
	DedupScope      string `yaml:"dedup_scope" validate:"omitempty,oneof=global directory"`
}

// Sink holds the connection settings for the CMS ingest API.
type Sink struct {
	URL            string `yaml:"url" validate:"required"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Ledger holds the configuration for the import ledger database.
type Ledger struct {
	Path string `yaml:"path" validate:"required"`
}

// Server holds the configuration for the status/metrics HTTP server.
type Server struct {
	Enabled     bool   `yaml:"enabled"`
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// Telegram holds the configuration for outcome notifications.
type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// PostImportPolicy is what happens to a source file after its import is decided.
type PostImportPolicy string

const (
	PolicyNone   PostImportPolicy = "none"
	PolicyDelete PostImportPolicy = "delete"
	PolicyMove   PostImportPolicy = "move"
)

// WatchSpec is the resolved, immutable description of one monitored
// directory. Both configuration surfaces produce this shape.
type WatchSpec struct {
	Path              string
	Name              string
	Owner             string
	Recursive         bool
	Extensions        map[string]bool // normalized: lower-case, no leading dot
	State             string
	AllowDownload     *bool
	IsReviewed        *bool
	Channel           string
	Categories        []string
	Tags              []string
	Description       string
	Policy            PostImportPolicy
	ProcessedDir      string
	DeleteAfterImport bool
}

// Scope returns the dedup scope key for this spec. Global scope shares one
// key across every directory; directory scope keys records by the spec name.
func (s *WatchSpec) Scope(dedupScope string) string {
	if dedupScope == "directory" {
		return s.Name
	}
	return "global"
}

// AllowsExtension reports whether ext (with or without leading dot, any
// case) passes this spec's allow-list. An empty allow-list admits everything.
func (s *WatchSpec) AllowsExtension(ext string) bool {
	if len(s.Extensions) == 0 {
		return true
	}
	return s.Extensions[NormalizeExtension(ext)]
}

// NormalizeExtension lower-cases an extension and strips the leading dot,
// so "MP4", ".mp4" and "mp4" all compare equal.
func NormalizeExtension(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// DebounceWindow returns the configured quiet period a file must hold
// before it is considered fully written.
func (c *Import) DebounceWindow() time.Duration {
	secs := c.DebounceSeconds
	if secs <= 0 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// ScanInterval returns the delay between full directory listings in scan mode.
func (c *Import) ScanInterval() time.Duration {
	secs := c.ScanSeconds
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// Retries returns the bounded retry budget for transient file errors.
func (c *Import) Retries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

// Workers returns the size of the import worker pool.
func (c *Import) Workers() int {
	if c.Parallelism <= 0 {
		return 2
	}
	return c.Parallelism
}

// SinkTimeout bounds how long one CreateMedia call may block a watcher.
func (c *Sink) SinkTimeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = 120
	}
	return time.Duration(secs) * time.Second
}

// resolveSpec turns one DirectoryConfig into a WatchSpec.
func resolveSpec(dc DirectoryConfig) WatchSpec {
	name := dc.Name
	if name == "" {
		name = dc.Path
	}
	recursive := true
	if dc.Recursive != nil {
		recursive = *dc.Recursive
	}
	exts := make(map[string]bool, len(dc.Extensions))
	for _, e := range dc.Extensions {
		if n := NormalizeExtension(e); n != "" {
			exts[n] = true
		}
	}
	policy := PolicyNone
	if dc.DeleteAfterImport {
		policy = PolicyDelete
	} else if dc.ProcessedDir != "" {
		policy = PolicyMove
	}
	return WatchSpec{
		Path:              filepath.Clean(dc.Path),
		Name:              name,
		Owner:             dc.Owner,
		Recursive:         recursive,
		Extensions:        exts,
		State:             dc.State,
		AllowDownload:     dc.AllowDownload,
		IsReviewed:        dc.IsReviewed,
		Channel:           dc.Channel,
		Categories:        dc.Categories,
		Tags:              dc.Tags,
		Description:       dc.Description,
		Policy:            policy,
		ProcessedDir:      dc.ProcessedDir,
		DeleteAfterImport: dc.DeleteAfterImport,
	}
}

// simpleSpecs expands the shorthand surface into DirectoryConfigs so both
// surfaces go through the same resolution path.
func (w *Watch) simpleSpecs() []DirectoryConfig {
	out := make([]DirectoryConfig, 0, len(w.Simple.Directories))
	for _, dir := range w.Simple.Directories {
		out = append(out, DirectoryConfig{
			Path:         dir,
			Owner:        w.Simple.Owner,
			Extensions:   w.Simple.Extensions,
			State:        w.Simple.State,
			ProcessedDir: w.Simple.ProcessedDir,
		})
	}
	return out
}
