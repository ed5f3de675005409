package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, watchDir string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
watch:
  directories:
    - path: ` + watchDir + `
      owner: admin
sink:
  url: http://cms.local
ledger:
  path: ` + filepath.Join(dir, "imports.db") + `
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestRunTestModePasses(t *testing.T) {
	configPath := writeConfig(t, t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--test", "--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if !strings.Contains(out.String(), "configuration valid") {
		t.Errorf("expected a validation summary, got %q", out.String())
	}
}

func TestRunTestModeFailsOnMissingDirectory(t *testing.T) {
	configPath := writeConfig(t, "/does/not/exist")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--test", "--config", configPath})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation to fail for a missing watch directory")
	}
	if !strings.Contains(out.String(), "does not exist") {
		t.Errorf("expected the failure reason in output, got %q", out.String())
	}
}

func TestScanRejectsSubSecondInterval(t *testing.T) {
	configPath := writeConfig(t, t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"scan", "--once", "--interval", "500ms", "--config", configPath})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected a sub-second interval to be rejected")
	}
	if !strings.Contains(err.Error(), "at least 1s") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestRootCommandRejectsUnknownSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"nonsense"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown subcommand")
	}
}
