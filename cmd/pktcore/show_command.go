package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pktcore/internal/combiner"
	"pktcore/internal/failures"
	"pktcore/internal/manifest"
)

type showEntry struct {
	Manifest     string `json:"manifest"`
	OriginalName string `json:"original_name,omitempty"`
	SplitID      string `json:"split_id,omitempty"`
	PartCount    uint32 `json:"part_count"`
	TotalLength  uint64 `json:"total_length"`
	CreatedAt    string `json:"created_at,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "List split files in a directory and whether their parts are present",
		Long: `Scan a directory for manifests and report, for each, whether every part file
exists with its recorded size. Checksums are not read; use verify for that.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			entries, err := manifest.Discover(dir)
			if err != nil {
				return failures.Wrap(failures.ErrSourceUnavailable, "show", "", err)
			}

			rows := make([]showEntry, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, describeManifest(e))
			}
			if jsonOutput {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No manifests in %s\n", dir)
				return nil
			}
			spec := tableSpec{
				headers: []string{"Manifest", "Original", "Parts", "Size", "Created", "Status"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			}
			for _, r := range rows {
				status := r.Status
				if r.Error != "" {
					status += ": " + r.Error
				}
				spec.addRow(filepath.Base(r.Manifest), r.OriginalName, strconv.FormatUint(uint64(r.PartCount), 10),
					humanize.IBytes(r.TotalLength), r.CreatedAt, status)
			}
			fmt.Fprintln(out, spec.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func describeManifest(e manifest.Entry) showEntry {
	row := showEntry{Manifest: e.Path}
	if e.Err != nil {
		row.Status = "unreadable"
		row.Error = e.Err.Error()
		return row
	}
	m := e.Manifest
	row.OriginalName = m.OriginalName
	row.SplitID = m.SplitID
	row.PartCount = m.PartCount
	row.TotalLength = m.TotalLength
	if !m.CreatedAt.IsZero() {
		row.CreatedAt = humanize.Time(m.CreatedAt)
	}
	if _, err := combiner.ResolveParts(e.Path); err != nil {
		row.Status = "incomplete"
		if idx, ok := failures.PartIndex(err); ok {
			row.Error = fmt.Sprintf("%s part %d", failures.KindName(err), idx)
		} else {
			row.Error = failures.KindName(err)
		}
		return row
	}
	row.Status = "complete"
	return row
}
