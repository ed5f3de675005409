package config

import (
	"fmt"
	"os"

	"github.com/denniswebb/mediacms/src/media"
)

// ConfigError describes one invalid WatchSpec or global setting. A spec
// with a ConfigError is never watched; other valid specs still run.
type ConfigError struct {
	Spec   string // spec name, or "" for global settings
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Spec == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid watch directory %q: %s", e.Spec, e.Reason)
}

// ValidationReport is the result of checking the runtime environment
// against the loaded configuration, as surfaced by the --test CLI mode.
type ValidationReport struct {
	Valid    []WatchSpec
	Errors   []*ConfigError
	Warnings []string
}

// OK reports whether at least one spec is usable and nothing is fatally wrong.
func (r *ValidationReport) OK() bool {
	return len(r.Errors) == 0 && len(r.Valid) > 0
}

// ValidateEnvironment checks every resolved WatchSpec against the file
// system: directory existence and readability, owner presence, visibility
// state, and processed-directory writability. It performs no watching and
// no imports.
func (m *Manager) ValidateEnvironment() *ValidationReport {
	report := &ValidationReport{}
	specs := m.WatchSpecs()

	if len(specs) == 0 {
		report.Errors = append(report.Errors, &ConfigError{Reason: "no watch directories configured"})
		return report
	}

	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := checkSpec(&spec); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		if seen[spec.Path] {
			report.Warnings = append(report.Warnings, fmt.Sprintf("directory %s is configured more than once", spec.Path))
		}
		seen[spec.Path] = true
		report.Valid = append(report.Valid, spec)
	}

	return report
}

func checkSpec(spec *WatchSpec) *ConfigError {
	info, err := os.Stat(spec.Path)
	if err != nil {
		return &ConfigError{Spec: spec.Name, Reason: fmt.Sprintf("directory does not exist: %s", spec.Path)}
	}
	if !info.IsDir() {
		return &ConfigError{Spec: spec.Name, Reason: fmt.Sprintf("path is not a directory: %s", spec.Path)}
	}
	if f, err := os.Open(spec.Path); err != nil {
		return &ConfigError{Spec: spec.Name, Reason: fmt.Sprintf("directory is not readable: %s", spec.Path)}
	} else {
		f.Close()
	}
	if spec.Owner == "" {
		return &ConfigError{Spec: spec.Name, Reason: "no owning principal configured"}
	}
	if !media.IsValidState(spec.State) {
		return &ConfigError{Spec: spec.Name, Reason: fmt.Sprintf("unknown visibility state %q", spec.State)}
	}
	if spec.Policy == PolicyMove {
		if err := checkWritableDir(spec.ProcessedDir); err != nil {
			return &ConfigError{Spec: spec.Name, Reason: fmt.Sprintf("processed directory is not writable: %v", err)}
		}
	}
	if spec.Policy == PolicyDelete && spec.ProcessedDir != "" {
		return &ConfigError{Spec: spec.Name, Reason: "delete_after_import and processed_dir are mutually exclusive"}
	}
	return nil
}

// checkWritableDir verifies dir exists (creating it if needed) and accepts writes.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}
