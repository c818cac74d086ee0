package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pktcore/internal/combiner"
)

type combineSummary struct {
	State         string     `json:"state"`
	Mode          string     `json:"mode"`
	Output        string     `json:"output"`
	Manifest      string     `json:"manifest,omitempty"`
	TotalBytes    uint64     `json:"total_bytes"`
	WholeChecksum string     `json:"whole_checksum"`
	Verified      bool       `json:"verified"`
	ElapsedMS     int64      `json:"elapsed_ms"`
	Parts         []partJSON `json:"parts"`
}

func newCombineCommand(ctx *commandContext) *cobra.Command {
	var (
		checksum   string
		preverify  bool
		workers    int
		bufferSize string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "combine <manifest|pattern> <output>",
		Short: "Reassemble parts into the original file",
		Long: `Reassemble a split file. The first argument is a manifest path, a glob
matching part files (quote it), or the source name whose .part files should
be joined. Output is written to a temporary file and only renamed into place
after every part and the whole-file checksum have been verified.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := combiner.Request{
				Locator:          args[0],
				OutputPath:       args[1],
				ExpectedChecksum: checksum,
				BufferSize:       cfg.BufferBytes(),
				Workers:          cfg.IO.Workers,
				Preverify:        cfg.Combine.Preverify,
				CheckFreeSpace:   cfg.Combine.CheckFreeSpace,
			}
			if cmd.Flags().Changed("preverify") {
				req.Preverify = preverify
			}
			if workers > 0 {
				req.Workers = workers
			}
			if bufferSize != "" {
				n, err := parseBufferSize(bufferSize)
				if err != nil {
					return err
				}
				req.BufferSize = n
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c := combiner.New(logger, combiner.WithLockDir(cfg.Paths.LockDir))
			res, err := c.Combine(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summarizeCombine(res))
			}
			printCombineSummary(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&checksum, "checksum", "", "Expected BLAKE3 checksum of the whole output (hex)")
	cmd.Flags().BoolVar(&preverify, "preverify", false, "Verify every part in parallel before writing output (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel part readers for --preverify (default from config)")
	cmd.Flags().StringVar(&bufferSize, "buffer-size", "", "Streaming buffer size (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func summarizeCombine(res *combiner.Result) combineSummary {
	summary := combineSummary{
		State:         res.State.String(),
		Mode:          string(res.Mode),
		Output:        res.OutputPath,
		TotalBytes:    res.TotalBytes,
		WholeChecksum: res.WholeChecksum.String(),
		Verified:      res.Verified,
		ElapsedMS:     res.Elapsed.Milliseconds(),
	}
	if res.Set != nil {
		summary.Manifest = res.Set.ManifestPath
		summary.Parts = resolvedPartsJSON(res.Set)
	}
	return summary
}

func resolvedPartsJSON(set *combiner.PartSet) []partJSON {
	out := make([]partJSON, 0, len(set.Parts))
	for _, p := range set.Parts {
		entry := partJSON{Index: p.Index, File: p.Path, Length: p.Length}
		if p.HasChecksum {
			entry.Checksum = p.Checksum.String()
		}
		out = append(out, entry)
	}
	return out
}

func printCombineSummary(cmd *cobra.Command, res *combiner.Result) {
	out := cmd.OutOrStdout()
	parts := 0
	if res.Set != nil {
		parts = len(res.Set.Parts)
	}
	fmt.Fprintf(out, "Combined %d parts (%s) into %s in %s\n",
		parts, humanize.IBytes(res.TotalBytes), res.OutputPath, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Mode: %s\n", res.Mode)
	fmt.Fprintf(out, "Checksum: %s\n", res.WholeChecksum)
	if res.Verified {
		fmt.Fprintln(out, "Integrity: verified")
	} else {
		fmt.Fprintln(out, "Integrity: not verified (no manifest or --checksum)")
	}
}
