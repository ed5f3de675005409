package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func managerFor(dirs ...DirectoryConfig) *Manager {
	return NewManager(&Config{Watch: Watch{Directories: dirs}})
}

func TestValidateEnvironmentAcceptsHealthySpec(t *testing.T) {
	dir := t.TempDir()
	m := managerFor(DirectoryConfig{Path: dir, Owner: "admin", State: "public"})

	report := m.ValidateEnvironment()
	if !report.OK() {
		t.Fatalf("expected a passing report, got errors %v", report.Errors)
	}
	if len(report.Valid) != 1 {
		t.Errorf("expected one valid spec, got %d", len(report.Valid))
	}
}

func TestValidateEnvironmentMissingDirectory(t *testing.T) {
	m := managerFor(DirectoryConfig{Path: "/does/not/exist", Name: "gone", Owner: "admin"})

	report := m.ValidateEnvironment()
	if report.OK() {
		t.Fatal("expected a failing report")
	}
	if len(report.Errors) != 1 || report.Errors[0].Spec != "gone" {
		t.Errorf("unexpected errors: %v", report.Errors)
	}
}

func TestValidateEnvironmentBadStateAndOwner(t *testing.T) {
	dir := t.TempDir()
	m := managerFor(
		DirectoryConfig{Path: dir, Name: "no-owner"},
		DirectoryConfig{Path: dir, Name: "bad-state", Owner: "admin", State: "hidden"},
	)

	report := m.ValidateEnvironment()
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", report.Errors)
	}
	if !strings.Contains(report.Errors[0].Reason, "owning principal") {
		t.Errorf("unexpected reason: %s", report.Errors[0].Reason)
	}
	if !strings.Contains(report.Errors[1].Reason, "visibility state") {
		t.Errorf("unexpected reason: %s", report.Errors[1].Reason)
	}
}

func TestValidateEnvironmentInvalidSpecDoesNotSinkTheRest(t *testing.T) {
	dir := t.TempDir()
	m := managerFor(
		DirectoryConfig{Path: "/does/not/exist", Name: "gone", Owner: "admin"},
		DirectoryConfig{Path: dir, Name: "ok", Owner: "admin"},
	)

	report := m.ValidateEnvironment()
	if len(report.Valid) != 1 || report.Valid[0].Name != "ok" {
		t.Errorf("expected the healthy spec to survive, got %+v", report.Valid)
	}
	if len(report.Errors) != 1 {
		t.Errorf("expected one error, got %v", report.Errors)
	}
}

func TestValidateEnvironmentDeleteAndMoveAreExclusive(t *testing.T) {
	dir := t.TempDir()
	m := managerFor(DirectoryConfig{
		Path:              dir,
		Name:              "both",
		Owner:             "admin",
		DeleteAfterImport: true,
		ProcessedDir:      filepath.Join(dir, "processed"),
	})

	report := m.ValidateEnvironment()
	if report.OK() {
		t.Fatal("expected mutual exclusion to fail validation")
	}
	if !strings.Contains(report.Errors[0].Reason, "mutually exclusive") {
		t.Errorf("unexpected reason: %s", report.Errors[0].Reason)
	}
}

func TestValidateEnvironmentCreatesProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(t.TempDir(), "processed")
	m := managerFor(DirectoryConfig{Path: dir, Owner: "admin", ProcessedDir: processed})

	report := m.ValidateEnvironment()
	if !report.OK() {
		t.Fatalf("expected a passing report, got %v", report.Errors)
	}
}

func TestValidateEnvironmentWarnsOnDuplicatePaths(t *testing.T) {
	dir := t.TempDir()
	m := managerFor(
		DirectoryConfig{Path: dir, Name: "one", Owner: "admin"},
		DirectoryConfig{Path: dir, Name: "two", Owner: "admin"},
	)

	report := m.ValidateEnvironment()
	if !report.OK() {
		t.Fatalf("expected a passing report, got %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("expected a duplicate-path warning, got %v", report.Warnings)
	}
}

func TestValidateEnvironmentNoDirectories(t *testing.T) {
	m := NewManager(&Config{})
	report := m.ValidateEnvironment()
	if report.OK() {
		t.Fatal("expected failure with no directories configured")
	}
}
