package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pktcore/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(t.TempDir(), "nested", "pktcore.toml")

	stdout, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Config path: "+target)
	requireContains(t, stdout, "Configuration valid")
	requireNotContains(t, stdout, "defaults were used")
}

func TestConfigInitDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, _, err := runCLI(t, []string{"config", "init"}, ""); err != nil {
		t.Fatalf("config init: %v", err)
	}
	want := filepath.Join(home, ".config", "pktcore", "config.toml")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected config at %s: %v", want, err)
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[io]\nbuffer_size = \"lots\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "io.buffer_size")
}

func TestConfigShowPrintsEffectiveSettings(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, stdout, "# buffer: 4096 bytes")
	requireContains(t, stdout, "buffer_size = ")
	requireContains(t, stdout, "4KiB")
	requireContains(t, stdout, "workers = 2")
}

func TestLogsCommandTailsLogFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	configPath := testsupport.WriteConfig(t, cfg)

	dir := t.TempDir()
	src := filepath.Join(dir, "data.bin")
	testsupport.WriteFile(t, src, 10)

	stdout, _, err := runCLI(t, []string{"split", src, "2", "--json"}, configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var summary splitSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode json: %v", err)
	}

	stdout, _, err = runCLI(t, []string{"logs", "--run", summary.SplitID}, configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, stdout, "split started")
	requireContains(t, stdout, "split completed")

	stdout, _, err = runCLI(t, []string{"logs", "--run", "00000000"}, configPath)
	if err != nil {
		t.Fatalf("logs filtered: %v", err)
	}
	if stdout != "" {
		t.Fatalf("expected no lines for unknown run, got %q", stdout)
	}
}

func TestLogsCommandRequiresLogDir(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected error when file logging is disabled")
	}
}

