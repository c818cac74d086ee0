package splitter

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"pktcore/internal/failures"
	"pktcore/internal/fileutil"
	"pktcore/internal/logging"
	"pktcore/internal/manifest"
	"pktcore/internal/preflight"
)

// DefaultBufferSize is the streaming buffer used when a request leaves
// BufferSize unset.
const DefaultBufferSize = 1 << 20

// Request describes one split invocation. Exactly one of Parts or
// MaxPartSize must be positive.
type Request struct {
	SourcePath  string
	OutputDir   string // defaults to the source's directory
	Parts       int
	MaxPartSize int64
	BufferSize  int
	Digits      int // minimum ordinal width; widened when the count needs more
	// CheckFreeSpace fails the split up front when the output filesystem
	// cannot hold a full copy of the source.
	CheckFreeSpace bool
}

// Result reports the artifacts of a completed split.
type Result struct {
	Manifest     *manifest.Manifest
	ManifestPath string
	PartPaths    []string
	Elapsed      time.Duration
}

// Splitter partitions files into parts plus a manifest.
type Splitter struct {
	logger     *slog.Logger
	lockDir    string
	now        func() time.Time
	createTemp func(dst string) (*os.File, error)
}

// Option customizes a Splitter.
type Option func(*Splitter)

// WithLockDir places advisory lock files in dir instead of the system temp
// directory.
func WithLockDir(dir string) Option {
	return func(s *Splitter) { s.lockDir = dir }
}

// WithClock overrides the manifest creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Splitter) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a splitter.
func New(logger *slog.Logger, opts ...Option) *Splitter {
	s := &Splitter{
		logger:     logging.NewComponentLogger(logger, "splitter"),
		now:        time.Now,
		createTemp: fileutil.CreateTemp,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split runs req with a default splitter that does not log.
func Split(ctx context.Context, req Request) (*Result, error) {
	return New(nil).Split(ctx, req)
}

// Split reads the source once, sequentially, writing each planned range to
// its own part file and a manifest describing the set. On any failure,
// including cancellation, every file this call created is removed before the
// error is returned.
func (s *Splitter) Split(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	if strings.TrimSpace(req.SourcePath) == "" {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "split", "source path is required", nil)
	}
	directive, err := DirectiveFromRequest(req.Parts, req.MaxPartSize)
	if err != nil {
		return nil, err
	}

	source, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "open source", req.SourcePath, err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "stat source", req.SourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, failures.Wrap(failures.ErrSourceUnavailable, "open source", req.SourcePath+" is not a regular file", nil)
	}
	length := uint64(info.Size())

	ranges, err := Plan(length, directive)
	if err != nil {
		return nil, err
	}

	outputDir := req.OutputDir
	if strings.TrimSpace(outputDir) == "" {
		outputDir = filepath.Dir(req.SourcePath)
	}
	var need uint64
	if req.CheckFreeSpace {
		need = length
	}
	if err := checkPreflight(preflight.RunSplit(preflight.SplitRequest{
		SourcePath: req.SourcePath,
		OutputDir:  outputDir,
		NeedBytes:  need,
	})); err != nil {
		return nil, err
	}

	base := manifest.NormalizeName(req.SourcePath)
	count := uint32(len(ranges))
	digits := manifest.DigitsFor(count, req.Digits)
	manifestPath := filepath.Join(outputDir, manifest.ManifestName(base))

	lock, err := fileutil.LockTarget(s.lockDir, manifestPath)
	if err != nil {
		return nil, failures.Wrap(failures.ErrDestinationUnavailable, "lock output", manifestPath, err)
	}
	defer lock.Unlock()

	splitID := uuid.NewString()
	ctx = logging.WithOperation(ctx, "split", splitID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("split started",
		logging.String("source", req.SourcePath),
		logging.String("output_dir", outputDir),
		logging.Uint64("total_bytes", length),
		logging.Int("parts", len(ranges)),
	)

	bufSize := req.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	run := &splitRun{
		splitter: s,
		ctx:      ctx,
		logger:   logger,
		source:   source,
		buf:      make([]byte, bufSize),
		whole:    manifest.NewHasher(),
		total:    length,
		sampler:  logging.NewProgressSampler(10),
		mode:     info.Mode().Perm(),
	}

	m := &manifest.Manifest{
		Version:      manifest.FormatVersion,
		SplitID:      splitID,
		OriginalName: base,
		TotalLength:  length,
		PartCount:    count,
		Algorithm:    manifest.Algorithm,
		CreatedAt:    s.now().UTC().Truncate(time.Second),
		Parts:        make([]manifest.Part, 0, count),
	}

	finals := make([]string, 0, count)
	for _, r := range ranges {
		name := manifest.PartName(base, r.Index, digits)
		final := filepath.Join(outputDir, name)
		digest, err := run.writePart(r, final)
		if err != nil {
			run.abort(err)
			return nil, err
		}
		finals = append(finals, final)
		m.Parts = append(m.Parts, manifest.Part{
			Index:    r.Index,
			File:     name,
			Offset:   r.Offset,
			Length:   r.Length,
			Checksum: digest,
		})
	}
	if err := run.checkExhausted(req.SourcePath); err != nil {
		run.abort(err)
		return nil, err
	}
	m.WholeChecksum = manifest.SumOf(run.whole)

	if err := run.promote(finals, outputDir); err != nil {
		run.abort(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("split cancelled: %w", err)
		run.abort(err)
		return nil, err
	}
	if err := m.Write(manifestPath); err != nil {
		err = failures.Wrap(failures.ErrWriteFailure, "write manifest", manifestPath, err)
		run.abort(err)
		return nil, err
	}
	run.removeStaleParts(outputDir, base, finals)

	elapsed := time.Since(started)
	logger.Info("split completed",
		logging.String("manifest", manifestPath),
		logging.Int("parts", len(finals)),
		logging.Uint64("total_bytes", length),
		logging.String("whole_checksum", m.WholeChecksum.Short()),
		logging.Duration("elapsed", elapsed),
	)
	return &Result{Manifest: m, ManifestPath: manifestPath, PartPaths: finals, Elapsed: elapsed}, nil
}

// splitRun carries the state of one Split call so cleanup can see every
// file created so far.
type splitRun struct {
	splitter *Splitter
	ctx      context.Context
	logger   *slog.Logger
	source   io.Reader
	buf      []byte
	whole    hash.Hash
	total    uint64
	written  uint64
	sampler  *logging.ProgressSampler
	mode     os.FileMode

	temps    []string
	promoted []string
}

// writePart streams r's bytes into a sealed temporary file next to final and
// returns the part digest. The temporary is promoted later, once every part
// has been written.
func (run *splitRun) writePart(r Range, final string) (manifest.Digest, error) {
	if err := run.ctx.Err(); err != nil {
		return manifest.Digest{}, fmt.Errorf("split cancelled: %w", err)
	}

	tmp, err := run.splitter.createTemp(final)
	if err != nil {
		return manifest.Digest{}, failures.Wrap(failures.ErrWriteFailure, "create part", final, err)
	}
	run.temps = append(run.temps, tmp.Name())

	partHash := manifest.NewHasher()
	src := &sourceReader{ctx: run.ctx, r: io.LimitReader(run.source, int64(r.Length))}
	n, err := io.CopyBuffer(io.MultiWriter(tmp, partHash, run.whole), src, run.buf)
	run.written += uint64(n)
	if err != nil {
		_ = tmp.Close()
		switch {
		case src.err != nil && run.ctx.Err() != nil:
			return manifest.Digest{}, fmt.Errorf("split cancelled: %w", run.ctx.Err())
		case src.err != nil:
			return manifest.Digest{}, failures.Wrap(failures.ErrSourceUnavailable, "read source", fmt.Sprintf("part %d", r.Index), src.err)
		default:
			return manifest.Digest{}, writeFailure("write part", final, err)
		}
	}
	if uint64(n) != r.Length {
		_ = tmp.Close()
		return manifest.Digest{}, failures.Wrap(failures.ErrSourceUnavailable, "read source",
			fmt.Sprintf("source ended after %d of %d bytes", run.written, run.total), nil)
	}
	if err := tmp.Chmod(run.mode); err != nil {
		_ = tmp.Close()
		return manifest.Digest{}, writeFailure("chmod part", final, err)
	}
	if err := fileutil.Seal(tmp); err != nil {
		return manifest.Digest{}, writeFailure("sync part", final, err)
	}

	digest := manifest.SumOf(partHash)
	run.logger.Debug("part written",
		logging.Part(r.Index),
		logging.String("file", filepath.Base(final)),
		logging.Uint64("part_bytes", r.Length),
		logging.String("checksum", digest.Short()),
	)
	if run.sampler.ShouldLogBytes(run.written, run.total, "streaming") {
		run.logger.Info("split progress",
			logging.Int("percent", int(logging.Percent(run.written, run.total))),
			logging.Uint64("written_bytes", run.written),
		)
	}
	return digest, nil
}

// checkExhausted fails when the source grew after it was measured, since the
// parts would silently drop the tail.
func (run *splitRun) checkExhausted(path string) error {
	var extra [1]byte
	n, err := run.source.Read(extra[:])
	if n > 0 {
		return failures.Wrap(failures.ErrSourceUnavailable, "read source", path+" grew while it was being split", nil)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return failures.Wrap(failures.ErrSourceUnavailable, "read source", path, err)
	}
	return nil
}

// promote renames every sealed temporary onto its final part name.
func (run *splitRun) promote(finals []string, dir string) error {
	for i, final := range finals {
		if err := fileutil.Promote(run.temps[i], final); err != nil {
			return writeFailure("rename part", final, err)
		}
		run.promoted = append(run.promoted, final)
	}
	run.temps = nil
	return fileutil.SyncDir(dir)
}

// removeStaleParts deletes part files of base in dir that the new manifest
// does not name, such as the tail of an earlier split into more parts.
// Failures are logged; the new set is already complete.
func (run *splitRun) removeStaleParts(dir, base string, finals []string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.WarnWithContext(run.logger, "stale part scan failed", "split_stale_scan_failed", logging.Error(err))
		return
	}
	keep := make(map[string]struct{}, len(finals))
	for _, final := range finals {
		keep[filepath.Base(final)] = struct{}{}
	}
	var stale []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		if b, _, _, ok := manifest.ParsePartName(name); !ok || b != base {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		stale = append(stale, filepath.Join(dir, name))
	}
	if len(stale) == 0 {
		return
	}
	if err := fileutil.RemoveFiles(stale...); err != nil {
		logging.WarnWithContext(run.logger, "stale part cleanup incomplete", "split_stale_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover part files manually"),
		)
		return
	}
	run.logger.Info("removed stale parts", logging.Int("count", len(stale)))
}

func (run *splitRun) abort(cause error) {
	leftovers := append(append([]string(nil), run.temps...), run.promoted...)
	if err := fileutil.RemoveFiles(leftovers...); err != nil {
		logging.WarnWithContext(run.logger, "cleanup after failed split incomplete", "split_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove leftover part files manually"),
		)
	}
	logging.ErrorWithContext(run.logger, "split aborted", "split_failed",
		logging.String("kind", failures.KindName(cause)),
		logging.Error(cause),
		logging.Int("removed_files", len(leftovers)),
	)
}

func checkPreflight(results []preflight.Result) error {
	failed, ok := preflight.FirstFailure(results)
	if !ok {
		return nil
	}
	marker := failures.ErrDestinationUnavailable
	switch failed.Kind {
	case preflight.KindSource:
		marker = failures.ErrSourceUnavailable
	case preflight.KindSpace:
		marker = failures.ErrWriteFailure
	}
	return failures.Wrap(marker, "preflight", failed.Name+": "+failed.Detail, nil)
}

func writeFailure(operation, path string, err error) error {
	if errors.Is(err, unix.ENOSPC) {
		return failures.Wrap(failures.ErrWriteFailure, operation, path+": disk full", err)
	}
	return failures.Wrap(failures.ErrWriteFailure, operation, path, err)
}

// sourceReader records read-side errors so they can be told apart from
// write-side errors after io.CopyBuffer returns, and stops at cancellation.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return 0, err
	}
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}
