package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pktcore/internal/combiner"
	"pktcore/internal/failures"
)

type verifySummary struct {
	Manifest      string     `json:"manifest"`
	OK            bool       `json:"ok"`
	WholeChecksum string     `json:"whole_checksum"`
	TotalBytes    uint64     `json:"total_bytes"`
	Error         string     `json:"error,omitempty"`
	Parts         []partJSON `json:"parts"`
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var workers int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <manifest>",
		Short: "Check every part against its manifest without writing output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.IO.Workers
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			report, verr := combiner.Verify(cmd.Context(), args[0], workers)
			if report == nil || report.Manifest == nil {
				return verr
			}
			if verr != nil {
				logger.Debug("verify failed",
					"kind", failures.KindName(verr),
					"failed_parts", len(report.Failed()),
				)
			}
			if jsonOutput {
				if err := writeJSON(cmd, summarizeVerify(args[0], report, verr)); err != nil {
					return err
				}
				return verr
			}
			printVerifyReport(cmd, report, verr)
			return verr
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel part readers (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func partStatus(check combiner.PartCheck) (string, verdict) {
	switch {
	case check.OK():
		return "ok", verdictOK
	case errors.Is(check.Err, failures.ErrMissingPart):
		return "missing", verdictError
	default:
		return "corrupt", verdictError
	}
}

func summarizeVerify(path string, report *combiner.VerifyReport, verr error) verifySummary {
	summary := verifySummary{
		Manifest:      path,
		OK:            verr == nil,
		WholeChecksum: report.WholeChecksum.String(),
		TotalBytes:    report.TotalBytes,
		Parts:         make([]partJSON, 0, len(report.Parts)),
	}
	if verr != nil {
		summary.Error = verr.Error()
	}
	for i, check := range report.Parts {
		status, _ := partStatus(check)
		entry := partJSON{
			Index:  check.Index,
			File:   check.Path,
			Length: check.Length,
			Status: status,
		}
		if check.OK() {
			entry.Checksum = check.Checksum.String()
		} else {
			entry.Error = check.Err.Error()
		}
		if i < len(report.Manifest.Parts) {
			entry.File = report.Manifest.Parts[i].File
		}
		summary.Parts = append(summary.Parts, entry)
	}
	return summary
}

func printVerifyReport(cmd *cobra.Command, report *combiner.VerifyReport, verr error) {
	out := cmd.OutOrStdout()
	color := isTerminal(out)
	m := report.Manifest

	spec := tableSpec{
		headers: []string{"#", "File", "Size", "Status"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	}
	for i, check := range report.Parts {
		status, _ := partStatus(check)
		name := check.Path
		if i < len(m.Parts) {
			name = m.Parts[i].File
		}
		spec.addRow(strconv.FormatUint(uint64(check.Index), 10), name, humanize.IBytes(check.Length), status)
	}
	fmt.Fprintf(out, "%s: %d parts, %s\n", m.OriginalName, m.PartCount, humanize.IBytes(m.TotalLength))
	fmt.Fprintln(out, spec.render())

	for _, check := range report.Failed() {
		_, v := partStatus(check)
		fmt.Fprintln(out, checkLine(fmt.Sprintf("Part %d", check.Index), v, check.Err.Error(), color))
	}
	if verr == nil {
		fmt.Fprintln(out, checkLine("Whole file", verdictOK, report.WholeChecksum.String(), color))
	} else if len(report.Failed()) == 0 {
		fmt.Fprintln(out, checkLine("Whole file", verdictError, verr.Error(), color))
	}
}
