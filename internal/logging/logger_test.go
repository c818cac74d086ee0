package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pktcore/internal/config"
	"pktcore/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if !strings.Contains(content, "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerFormatsSubjectAndBytes(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithOperation(context.Background(), "split", "3f9c0f0e-1111-2222-3333-444455556666")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "splitter"))
	logger.Info("part written", logging.Int64("part_bytes", 3<<20), logging.String("file", "movie.mkv.part000"))

	content := readLog(t, logPath)
	for _, want := range []string{
		"INFO",
		"splitter: [split 3f9c0f0e] part written",
		`part_bytes="3.0 MiB"`,
		"file=movie.mkv.part000",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should be rendered as prefix, got %q", content)
	}
}

func TestJSONLoggerEmitsStructuredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithOperation(context.Background(), "combine", "abc")
	logging.WithContext(ctx, logger).Warn("checksum mismatch", logging.Part(4))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "checksum mismatch" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry[logging.FieldOperation] != "combine" || entry[logging.FieldOperationID] != "abc" {
		t.Fatalf("expected operation fields, got %v", entry)
	}
	if entry[logging.FieldPartIndex] != float64(4) {
		t.Fatalf("expected part index, got %v", entry[logging.FieldPartIndex])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("quiet")
	logger.Error("loud", logging.Error(errors.New("boom")))

	content := readLog(t, logPath)
	if strings.Contains(content, "quiet") {
		t.Fatalf("info should be filtered at warn level: %q", content)
	}
	if !strings.Contains(content, "loud") || !strings.Contains(content, "error=boom") {
		t.Fatalf("expected error line, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestErrorWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatal(err)
	}
	logging.ErrorWithContext(logger, "combine aborted", "combine_failed", logging.String(logging.FieldErrorHint, "re-split the source"))

	content := readLog(t, logPath)
	if !strings.Contains(content, `"event_type":"combine_failed"`) {
		t.Fatalf("expected event_type, got %q", content)
	}
	if !strings.Contains(content, `"error_hint":"re-split the source"`) {
		t.Fatalf("expected caller hint to win, got %q", content)
	}
}

func TestNopLoggerAndContextWithoutOperation(t *testing.T) {
	logger := logging.NewNop()
	logger.Info("discarded")
	if fields := logging.ContextFields(context.Background()); fields != nil {
		t.Fatalf("expected no fields, got %v", fields)
	}
	if _, _, ok := logging.OperationFromContext(context.Background()); ok {
		t.Fatal("expected no operation")
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWarnWithContextAddsDefaultHint(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatal(err)
	}
	logging.WarnWithContext(logger, "stale part cleanup incomplete", "split_stale_cleanup_failed", logging.Part(7))
	logging.WarnWithContext(nil, "dropped", "ignored")

	content := readLog(t, logPath)
	for _, want := range []string{`"level":"WARN"`, `"event_type":"split_stale_cleanup_failed"`, `"error_hint":"re-run with --log-level debug for details"`, `"part_index":7`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}
