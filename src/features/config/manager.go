package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a new Manager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// WatchSpecs resolves both configuration surfaces into the ordered list of
// immutable WatchSpecs the watcher runs from.
func (m *Manager) WatchSpecs() []WatchSpec {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	dirs := make([]DirectoryConfig, 0, len(cfg.Watch.Directories))
	dirs = append(dirs, cfg.Watch.Directories...)
	dirs = append(dirs, cfg.Watch.simpleSpecs()...)

	specs := make([]WatchSpec, 0, len(dirs))
	for _, dc := range dirs {
		specs = append(specs, resolveSpec(dc))
	}
	return specs
}

// SetScanInterval overrides the configured scan interval for this process.
func (m *Manager) SetScanInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Import.ScanSeconds = int(d / time.Second)
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// EnsureDirectories creates the ledger parent directory and any configured
// processed directories if they don't exist. Watch directories are not
// created here: a missing watch directory is a configuration error, not
// something to paper over.
func (m *Manager) EnsureDirectories() error {
	if dir := filepath.Dir(m.Get().Ledger.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
		}
	}
	for _, spec := range m.WatchSpecs() {
		if spec.Policy != PolicyMove {
			continue
		}
		if err := os.MkdirAll(spec.ProcessedDir, 0755); err != nil {
			return fmt.Errorf("failed to create processed directory %s: %w", spec.ProcessedDir, err)
		}
	}
	return nil
}

// redactedCfg gets a redacted copy of the Config.
func (m *Manager) redactedCfg() Config {
	var cfgCpy = *m.Get()
	if cfgCpy.Sink.Token != "" {
		cfgCpy.Sink.Token = "<redacted>"
	}
	if cfgCpy.Telegram.Token != "" {
		cfgCpy.Telegram.Token = "<redacted>"
	}
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

// GetYAML returns the current configuration as a YAML string.
func (m *Manager) GetYAML() string {
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
