package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"pktcore/internal/failures"
	"pktcore/internal/manifest"
	"pktcore/internal/testsupport"
)

func TestCLISplitAndCombineRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("data.bin")
	content := testsupport.WriteFile(t, src, 10)

	stdout, _, err := runCLI(t, []string{"split", src, "3"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	requireContains(t, stdout, "Split data.bin (10 B) into 3 parts")
	requireContains(t, stdout, "data.bin.part002")
	testsupport.RequireDirNames(t, env.dir,
		"data.bin", "data.bin.manifest", "data.bin.part000", "data.bin.part001", "data.bin.part002")

	m, err := manifest.Load(env.path("data.bin.manifest"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if got := m.PartLengths(); len(got) != 3 || got[0] != 4 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("unexpected part lengths %v", got)
	}

	out := env.path("restored.bin")
	stdout, _, err = runCLI(t, []string{"combine", env.path("data.bin.manifest"), out}, env.configPath)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	requireContains(t, stdout, "Combined 3 parts")
	requireContains(t, stdout, "Integrity: verified")
	testsupport.RequireSameContent(t, out, content)
}

func TestCLISplitBySize(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("blob")
	testsupport.WriteFile(t, src, 2500)

	if _, _, err := runCLI(t, []string{"split", src, "--size", "1000B"}, env.configPath); err != nil {
		t.Fatalf("split --size: %v", err)
	}
	m, err := manifest.Load(env.path("blob.manifest"))
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.PartCount != 3 {
		t.Fatalf("expected 3 parts, got %d", m.PartCount)
	}
}

func TestCLISplitRejectsBadPartitioning(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("small")
	testsupport.WriteFile(t, src, 3)

	tests := []struct {
		name string
		args []string
	}{
		{"more parts than bytes", []string{"split", src, "5"}},
		{"zero parts", []string{"split", src, "0"}},
		{"not a number", []string{"split", src, "three"}},
		{"no directive", []string{"split", src}},
		{"count and size", []string{"split", src, "2", "--size", "1KiB"}},
		{"bad size", []string{"split", src, "--size", "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := failures.ExitCode(err); code != 4 {
				t.Fatalf("exit code = %d, want 4 (%v)", code, err)
			}
			requireContains(t, formatError(err), "error: InvalidPartitioning:")
		})
	}
	testsupport.RequireDirNames(t, env.dir, "small")
}

func TestCLISplitMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"split", env.path("absent"), "2"}, env.configPath)
	if code := failures.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2 (%v)", code, err)
	}
}

func TestCLISplitDryRunWritesNothing(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("data.bin")
	testsupport.WriteFile(t, src, 10)

	stdout, _, err := runCLI(t, []string{"split", src, "3", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	requireContains(t, stdout, "Source file:")
	requireContains(t, stdout, "[OK]")
	requireContains(t, stdout, "Plan: 3 parts of data.bin")
	requireContains(t, stdout, "data.bin.part000")
	requireContains(t, stdout, "data.bin.manifest")
	testsupport.RequireDirNames(t, env.dir, "data.bin")
}

func TestCLISplitJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("data.bin")
	testsupport.WriteFile(t, src, 100)

	stdout, _, err := runCLI(t, []string{"split", src, "4", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("split --json: %v", err)
	}
	var summary splitSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if summary.PartCount != 4 || summary.TotalLength != 100 || len(summary.Parts) != 4 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Algorithm != manifest.Algorithm || summary.WholeChecksum == "" {
		t.Fatalf("missing checksum fields %+v", summary)
	}
	if summary.Parts[3].Offset != 75 || summary.Parts[3].File != "data.bin.part003" {
		t.Fatalf("unexpected last part %+v", summary.Parts[3])
	}
}

func TestCLICombineCorruptPart(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(10), 4, 3, 3)
	testsupport.FlipByte(t, set.PartPaths[1], 0)

	out := env.path("out.bin")
	_, _, err := runCLI(t, []string{"combine", set.ManifestPath, out}, env.configPath)
	if code := failures.ExitCode(err); code != 6 {
		t.Fatalf("exit code = %d, want 6 (%v)", code, err)
	}
	requireContains(t, formatError(err), "error: CorruptPart(1)")
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err = %v", statErr)
	}
}

func TestCLICombineMissingPart(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(10), 4, 3, 3)
	if err := os.Remove(set.PartPaths[2]); err != nil {
		t.Fatal(err)
	}

	_, _, err := runCLI(t, []string{"combine", set.ManifestPath, env.path("out.bin")}, env.configPath)
	if code := failures.ExitCode(err); code != 7 {
		t.Fatalf("exit code = %d, want 7 (%v)", code, err)
	}
	requireContains(t, formatError(err), "MissingPart(2)")
}

func TestCLICombinePatternWithChecksum(t *testing.T) {
	env := setupCLITestEnv(t)
	content := testsupport.Pattern(64)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", content, 20, 22, 22)
	if err := os.Remove(set.ManifestPath); err != nil {
		t.Fatal(err)
	}

	out := env.path("joined.bin")
	stdout, _, err := runCLI(t, []string{"combine", env.path("data.bin"), out,
		"--checksum", manifest.Sum(content).String()}, env.configPath)
	if err != nil {
		t.Fatalf("combine pattern: %v", err)
	}
	requireContains(t, stdout, "Mode: pattern")
	requireContains(t, stdout, "Integrity: verified")
	testsupport.RequireSameContent(t, out, content)

	_, _, err = runCLI(t, []string{"combine", env.path("data.bin"), env.path("other.bin"),
		"--checksum", manifest.Sum([]byte("different")).String()}, env.configPath)
	if code := failures.ExitCode(err); code != 8 {
		t.Fatalf("exit code = %d, want 8 (%v)", code, err)
	}
}

func TestCLICombineJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(30), 10, 10, 10)

	stdout, _, err := runCLI(t, []string{"combine", set.ManifestPath, env.path("out.bin"), "--json", "--preverify"}, env.configPath)
	if err != nil {
		t.Fatalf("combine --json: %v", err)
	}
	var summary combineSummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if summary.State != "committed" || summary.Mode != "manifest" || !summary.Verified || summary.TotalBytes != 30 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.WholeChecksum != set.Manifest.WholeChecksum.String() {
		t.Fatalf("checksum %s, want %s", summary.WholeChecksum, set.Manifest.WholeChecksum)
	}
}

func TestCLIVerifyReportsEveryBadPart(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(40), 10, 10, 10, 10)

	stdout, _, err := runCLI(t, []string{"verify", set.ManifestPath}, env.configPath)
	if err != nil {
		t.Fatalf("verify clean set: %v", err)
	}
	requireContains(t, stdout, "Whole file:")
	requireNotContains(t, stdout, "corrupt")

	testsupport.FlipByte(t, set.PartPaths[0], 3)
	if err := os.Remove(set.PartPaths[2]); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = runCLI(t, []string{"verify", set.ManifestPath}, env.configPath)
	if code := failures.ExitCode(err); code != 6 {
		t.Fatalf("exit code = %d, want 6 (%v)", code, err)
	}
	requireContains(t, stdout, "Part 0:")
	requireContains(t, stdout, "Part 2:")
	requireContains(t, stdout, "corrupt")
	requireContains(t, stdout, "missing")
	requireNotContains(t, stdout, "Part 1:")
}

func TestCLIVerifyJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(20), 10, 10)
	testsupport.FlipByte(t, set.PartPaths[1], 0)

	stdout, _, err := runCLI(t, []string{"verify", set.ManifestPath, "--json"}, env.configPath)
	if err == nil {
		t.Fatal("expected verify to fail")
	}
	var summary verifySummary
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("decode json: %v\n%s", err, stdout)
	}
	if summary.OK || len(summary.Parts) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Parts[0].Status != "ok" || summary.Parts[1].Status != "corrupt" {
		t.Fatalf("unexpected statuses %+v", summary.Parts)
	}
}

func TestCLIListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(30), 10, 10, 10)
	testsupport.WritePartSet(t, env.dir, "other.bin", testsupport.Pattern(5), 5)

	stdout, _, err := runCLI(t, []string{"list", set.ManifestPath}, env.configPath)
	if err != nil {
		t.Fatalf("list manifest: %v", err)
	}
	requireContains(t, stdout, "data.bin (manifest mode)")
	requireContains(t, stdout, "data.bin.part002")

	stdout, _, err = runCLI(t, []string{"list", env.path("data.bin.part*")}, env.configPath)
	if err != nil {
		t.Fatalf("list pattern: %v", err)
	}
	requireContains(t, stdout, "data.bin (pattern mode)")

	if err := os.Remove(set.PartPaths[1]); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = runCLI(t, []string{"show", env.dir}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, stdout, "data.bin.manifest")
	requireContains(t, stdout, "incomplete: MissingPart part 1")
	requireContains(t, stdout, "other.bin.manifest")
	requireContains(t, stdout, "complete")

	stdout, _, err = runCLI(t, []string{"show", t.TempDir()}, env.configPath)
	if err != nil {
		t.Fatalf("show empty: %v", err)
	}
	requireContains(t, stdout, "No manifests in")
}

func TestCLIUnsupportedManifestVersion(t *testing.T) {
	env := setupCLITestEnv(t)
	set := testsupport.WritePartSet(t, env.dir, "data.bin", testsupport.Pattern(10), 10)
	raw := testsupport.ReadFile(t, set.ManifestPath)
	testsupport.WriteBytes(t, set.ManifestPath, []byte(strings.Replace(string(raw), `"format_version": 1`, `"format_version": 7`, 1)))

	_, _, err := runCLI(t, []string{"combine", set.ManifestPath, env.path("out.bin")}, env.configPath)
	if code := failures.ExitCode(err); code != 9 {
		t.Fatalf("exit code = %d, want 9 (%v)", code, err)
	}
}

func TestCLIVersion(t *testing.T) {
	stdout, _, err := runCLI(t, []string{"--version"}, "")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if stdout != "pktcore dev\n" {
		t.Fatalf("unexpected version output %q", stdout)
	}
}

func TestCLILogsGoToStderr(t *testing.T) {
	env := setupCLITestEnv(t)
	src := env.path("data.bin")
	testsupport.WriteFile(t, src, 10)

	stdout, stderr, err := runCLI(t, []string{"--log-level", "debug", "split", src, "2", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !json.Valid([]byte(stdout)) {
		t.Fatalf("stdout is not clean JSON: %q", stdout)
	}
	requireContains(t, stderr, "splitter:")
	requireContains(t, stderr, "DEBUG")
}
