package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"pktcore/internal/testsupport"
)

type cliEnv struct {
	dir        string
	configPath string
}

func setupCLITestEnv(t *testing.T) cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PKTCORE_LOCK_DIR", "")
	t.Setenv("PKTCORE_BUFFER_SIZE", "")
	t.Setenv("PKTCORE_LOG_LEVEL", "")
	cfg := testsupport.NewConfig(t, testsupport.WithBufferSize("4KiB"), testsupport.WithWorkers(2))
	return cliEnv{
		dir:        t.TempDir(),
		configPath: testsupport.WriteConfig(t, cfg),
	}
}

func (e cliEnv) path(name string) string {
	return filepath.Join(e.dir, name)
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

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
