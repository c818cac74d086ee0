package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pktcore/internal/combiner"
)

type listSummary struct {
	Mode       string     `json:"mode"`
	Manifest   string     `json:"manifest,omitempty"`
	Base       string     `json:"base"`
	TotalBytes uint64     `json:"total_bytes"`
	Parts      []partJSON `json:"parts"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <manifest|pattern>",
		Short: "Show the parts a combine would read, in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := combiner.ResolveParts(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				summary := listSummary{
					Mode:       string(set.Mode),
					Manifest:   set.ManifestPath,
					Base:       set.Base,
					TotalBytes: set.TotalLength(),
					Parts:      resolvedPartsJSON(set),
				}
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s mode)\n", set.Base, set.Mode)
			spec := tableSpec{
				headers: []string{"#", "File", "Size", "Checksum"},
				aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				footer:  []string{"", fmt.Sprintf("%d parts", len(set.Parts)), humanize.IBytes(set.TotalLength()), ""},
			}
			for _, p := range set.Parts {
				sum := "-"
				if p.HasChecksum {
					sum = p.Checksum.Short()
				}
				spec.addRow(strconv.FormatUint(uint64(p.Index), 10), filepath.Base(p.Path), humanize.IBytes(p.Length), sum)
			}
			fmt.Fprintln(out, spec.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
