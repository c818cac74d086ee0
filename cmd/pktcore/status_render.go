package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"pktcore/internal/preflight"
)

// verdict is the bracketed outcome printed after a check label.
type verdict struct {
	text  string
	color string
}

var (
	verdictOK    = verdict{text: "OK", color: "\x1b[32m"}
	verdictError = verdict{text: "ERROR", color: "\x1b[31m"}
)

const colorReset = "\x1b[0m"

func verdictFor(passed bool) verdict {
	if passed {
		return verdictOK
	}
	return verdictError
}

// checkLine formats one indented "Label: [OK] detail" row. Labels are padded
// so verdicts line up across a block.
func checkLine(label string, v verdict, detail string, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-18s [%s]", label+":", v.text)
	if detail != "" {
		b.WriteString(" " + detail)
	}
	if !color {
		return b.String()
	}
	return v.color + b.String() + colorReset
}

func preflightLines(results []preflight.Result, color bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, checkLine(r.Name, verdictFor(r.Passed), r.Detail, color))
	}
	return lines
}

// isTerminal reports whether w is a console that renders ANSI colors.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
