package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pktcore/internal/failures"
	"pktcore/internal/manifest"
	"pktcore/internal/preflight"
	"pktcore/internal/splitter"
)

type splitOptions struct {
	size       string
	outDir     string
	bufferSize string
	digits     int
	jsonOutput bool
	dryRun     bool
}

type splitSummary struct {
	SplitID       string     `json:"split_id"`
	Source        string     `json:"source"`
	Manifest      string     `json:"manifest"`
	TotalLength   uint64     `json:"total_length"`
	PartCount     uint32     `json:"part_count"`
	Algorithm     string     `json:"algorithm"`
	WholeChecksum string     `json:"whole_checksum"`
	ElapsedMS     int64      `json:"elapsed_ms"`
	Parts         []partJSON `json:"parts"`
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "split <source> [part-count]",
		Short: "Split a file into parts plus a manifest",
		Long: `Split a file into balanced parts named <source>.part000, <source>.part001, ...
and write <source>.manifest describing them. Give either a part count or
--size; the first parts are at most one byte longer than the rest.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req := splitter.Request{
				SourcePath:     args[0],
				OutputDir:      strings.TrimSpace(opts.outDir),
				BufferSize:     cfg.BufferBytes(),
				Digits:         cfg.Split.MinDigits,
				CheckFreeSpace: cfg.Split.CheckFreeSpace,
			}
			if opts.digits > 0 {
				req.Digits = opts.digits
			}
			if err := applySplitDirective(&req, args[1:], opts.size); err != nil {
				return err
			}
			if opts.bufferSize != "" {
				n, err := parseBufferSize(opts.bufferSize)
				if err != nil {
					return err
				}
				req.BufferSize = n
			}

			if opts.dryRun {
				return runSplitDryRun(cmd, req)
			}

			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			s := splitter.New(logger, splitter.WithLockDir(cfg.Paths.LockDir))
			res, err := s.Split(cmd.Context(), req)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, summarizeSplit(args[0], res))
			}
			printSplitSummary(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.size, "size", "", "Maximum part size (e.g. 64MiB) instead of a part count")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for parts and manifest (default: next to the source)")
	cmd.Flags().StringVar(&opts.bufferSize, "buffer-size", "", "Streaming buffer size (default from config)")
	cmd.Flags().IntVar(&opts.digits, "digits", 0, "Minimum zero padding of part ordinals (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the partition plan and preflight checks without writing anything")
	return cmd
}

// applySplitDirective sets exactly one of Parts or MaxPartSize from the
// positional count and --size.
func applySplitDirective(req *splitter.Request, rest []string, size string) error {
	size = strings.TrimSpace(size)
	switch {
	case len(rest) == 1 && size != "":
		return failures.Wrap(failures.ErrInvalidPartitioning, "split", "give a part count or --size, not both", nil)
	case len(rest) == 1:
		n, err := strconv.Atoi(strings.TrimSpace(rest[0]))
		if err != nil {
			return failures.Wrap(failures.ErrInvalidPartitioning, "split", fmt.Sprintf("part count %q is not a whole number", rest[0]), nil)
		}
		if n < 1 {
			return failures.Wrap(failures.ErrInvalidPartitioning, "split", fmt.Sprintf("part count must be at least 1, got %d", n), nil)
		}
		req.Parts = n
	case size != "":
		n, err := humanize.ParseBytes(size)
		if err != nil {
			return failures.Wrap(failures.ErrInvalidPartitioning, "split", fmt.Sprintf("--size %q", size), err)
		}
		if n < 1 || n > 1<<62 {
			return failures.Wrap(failures.ErrInvalidPartitioning, "split", fmt.Sprintf("--size %q out of range", size), nil)
		}
		req.MaxPartSize = int64(n)
	default:
		return failures.Wrap(failures.ErrInvalidPartitioning, "split", "a part count or --size is required", nil)
	}
	return nil
}

func parseBufferSize(value string) (int, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("--buffer-size %q: %w", value, err)
	}
	if n < 1 || n > 256<<20 {
		return 0, fmt.Errorf("--buffer-size %q out of range", value)
	}
	return int(n), nil
}

func runSplitDryRun(cmd *cobra.Command, req splitter.Request) error {
	out := cmd.OutOrStdout()
	color := isTerminal(out)

	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return failures.Wrap(failures.ErrSourceUnavailable, "stat source", req.SourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return failures.Wrap(failures.ErrSourceUnavailable, "stat source", req.SourcePath+" is not a regular file", nil)
	}
	length := uint64(info.Size())
	directive, err := splitter.DirectiveFromRequest(req.Parts, req.MaxPartSize)
	if err != nil {
		return err
	}
	ranges, err := splitter.Plan(length, directive)
	if err != nil {
		return err
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(req.SourcePath)
	}
	preq := preflight.SplitRequest{SourcePath: req.SourcePath, OutputDir: outDir}
	if req.CheckFreeSpace {
		preq.NeedBytes = length
	}
	results := preflight.RunSplit(preq)
	fmt.Fprintln(out, "Preflight")
	for _, line := range preflightLines(results, color) {
		fmt.Fprintln(out, line)
	}

	base := manifest.NormalizeName(req.SourcePath)
	digits := manifest.DigitsFor(uint32(len(ranges)), req.Digits)
	fmt.Fprintf(out, "\nPlan: %d parts of %s (%s total) into %s\n", len(ranges), base, humanize.IBytes(length), outDir)
	spec := tableSpec{
		headers: []string{"#", "File", "Offset", "Size"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignRight},
	}
	for _, r := range ranges {
		spec.addRow(strconv.FormatUint(uint64(r.Index), 10), manifest.PartName(base, r.Index, digits),
			strconv.FormatUint(r.Offset, 10), humanize.IBytes(r.Length))
	}
	fmt.Fprintln(out, spec.render())
	fmt.Fprintf(out, "Manifest: %s\n", filepath.Join(outDir, manifest.ManifestName(base)))

	if failed, ok := preflight.FirstFailure(results); ok {
		marker := failures.ErrDestinationUnavailable
		switch failed.Kind {
		case preflight.KindSource:
			marker = failures.ErrSourceUnavailable
		case preflight.KindSpace:
			marker = failures.ErrWriteFailure
		}
		return failures.Wrap(marker, "preflight", failed.Name+": "+failed.Detail, nil)
	}
	return nil
}

func summarizeSplit(source string, res *splitter.Result) splitSummary {
	m := res.Manifest
	return splitSummary{
		SplitID:       m.SplitID,
		Source:        source,
		Manifest:      res.ManifestPath,
		TotalLength:   m.TotalLength,
		PartCount:     m.PartCount,
		Algorithm:     m.Algorithm,
		WholeChecksum: m.WholeChecksum.String(),
		ElapsedMS:     res.Elapsed.Milliseconds(),
		Parts:         partsJSON(m.Parts),
	}
}

func printSplitSummary(cmd *cobra.Command, res *splitter.Result) {
	out := cmd.OutOrStdout()
	m := res.Manifest
	fmt.Fprintf(out, "Split %s (%s) into %d parts in %s\n",
		m.OriginalName, humanize.IBytes(m.TotalLength), m.PartCount, res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Manifest: %s\n", res.ManifestPath)
	fmt.Fprintf(out, "Checksum: %s:%s\n", m.Algorithm, m.WholeChecksum)

	spec := tableSpec{
		headers: []string{"#", "File", "Size", "Checksum"},
		aligns:  []columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		footer:  []string{"", fmt.Sprintf("%d parts", m.PartCount), humanize.IBytes(m.TotalLength), ""},
	}
	for _, p := range m.Parts {
		spec.addRow(strconv.FormatUint(uint64(p.Index), 10), p.File, humanize.IBytes(p.Length), p.Checksum.Short())
	}
	fmt.Fprintln(out, spec.render())
}
