package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

// setupCLITestEnv writes a config file backed by temp directories with an
// in-memory cache, so commands run without touching the network or the
// user's home directory.
func setupCLITestEnv(t *testing.T, extraSections ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	stateDir := filepath.Join(base, "state")
	logDir := filepath.Join(base, "logs")
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, stateDir, logDir, extraSections...)

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path, stateDir, logDir string, extraSections ...string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"

[cache]
backend = "memory"

[logging]
level = "error"
`, stateDir, logDir)
	if len(extraSections) > 0 {
		content += "\n" + strings.Join(extraSections, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
