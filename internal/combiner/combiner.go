package combiner

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
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

// Request describes one combine invocation.
type Request struct {
	// Locator is a manifest path, a glob matching part files, or a bare
	// prefix that expands to <prefix>.part*.
	Locator    string
	OutputPath string
	// ExpectedChecksum is an optional hex BLAKE3 digest of the whole output.
	// In pattern mode it is the only integrity check available.
	ExpectedChecksum string
	BufferSize       int
	Workers          int
	// Preverify checks every part in parallel before any output is written.
	Preverify      bool
	CheckFreeSpace bool
}

// Result reports the outcome of a combine. On failure it is still returned,
// with State set to StateAborted.
type Result struct {
	State         State
	Mode          Mode
	OutputPath    string
	Set           *PartSet
	TotalBytes    uint64
	WholeChecksum manifest.Digest
	// Verified is false only in pattern mode without an expected checksum.
	Verified bool
	Elapsed  time.Duration
}

// Combiner reassembles part sets into their original file.
type Combiner struct {
	logger     *slog.Logger
	lockDir    string
	createTemp func(dst string) (*os.File, error)
}

// Option customizes a Combiner.
type Option func(*Combiner)

// WithLockDir places advisory lock files in dir instead of the system temp
// directory.
func WithLockDir(dir string) Option {
	return func(c *Combiner) { c.lockDir = dir }
}

// New constructs a combiner.
func New(logger *slog.Logger, opts ...Option) *Combiner {
	c := &Combiner{
		logger:     logging.NewComponentLogger(logger, "combiner"),
		createTemp: fileutil.CreateTemp,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Combine runs req with a default combiner that does not log.
func Combine(ctx context.Context, req Request) (*Result, error) {
	return New(nil).Combine(ctx, req)
}

// Combine streams every part, in index order, into a temporary file beside
// OutputPath, verifying each part and then the whole before renaming the
// temporary over OutputPath. No failure leaves anything at OutputPath.
func (c *Combiner) Combine(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	ctx = logging.WithOperation(ctx, "combine", uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	res := &Result{State: StateInit, OutputPath: req.OutputPath}
	machine := newStateMachine(func(from, to State) {
		res.State = to
		logger.Debug("combine state", logging.String("from", from.String()), logging.String("to", to.String()))
	})
	fail := func(err error) (*Result, error) {
		machine.abort()
		res.Elapsed = time.Since(started)
		logging.ErrorWithContext(logger, "combine aborted", "combine_failed",
			logging.String("kind", failures.KindName(err)),
			logging.Error(err),
		)
		return res, err
	}

	if strings.TrimSpace(req.OutputPath) == "" {
		return fail(failures.Wrap(failures.ErrDestinationUnavailable, "combine", "output path is required", nil))
	}
	var expected *manifest.Digest
	if strings.TrimSpace(req.ExpectedChecksum) != "" {
		d, err := manifest.ParseDigest(req.ExpectedChecksum)
		if err != nil {
			return fail(fmt.Errorf("expected checksum: %w", err))
		}
		expected = &d
	}

	if err := machine.advance(StateResolvingParts); err != nil {
		return fail(err)
	}
	set, err := ResolveParts(req.Locator)
	if err != nil {
		return fail(err)
	}
	res.Set = set
	res.Mode = set.Mode
	if set.Mode == ModeManifest {
		if expected != nil && *expected != set.Manifest.WholeChecksum {
			return fail(failures.Wrap(failures.ErrIntegrityMismatch, "combine",
				fmt.Sprintf("manifest records %s, expected %s", set.Manifest.WholeChecksum.Short(), expected.Short()), nil))
		}
		expected = &set.Manifest.WholeChecksum
	}
	if err := checkOutputTarget(req.OutputPath, set); err != nil {
		return fail(err)
	}
	logger.Info("combine started",
		logging.String("locator", req.Locator),
		logging.String("mode", string(set.Mode)),
		logging.Int("parts", len(set.Parts)),
		logging.Uint64("total_bytes", set.TotalLength()),
		logging.String("output", req.OutputPath),
	)

	outputDir := filepath.Dir(req.OutputPath)
	var need uint64
	if req.CheckFreeSpace {
		need = set.TotalLength()
	}
	if failed, ok := preflight.FirstFailure(preflight.RunCombine(outputDir, need)); ok {
		marker := failures.ErrDestinationUnavailable
		if failed.Kind == preflight.KindSpace {
			marker = failures.ErrWriteFailure
		}
		return fail(failures.Wrap(marker, "preflight", failed.Name+": "+failed.Detail, nil))
	}

	lock, err := fileutil.LockTarget(c.lockDir, req.OutputPath)
	if err != nil {
		return fail(failures.Wrap(failures.ErrDestinationUnavailable, "lock output", req.OutputPath, err))
	}
	defer lock.Unlock()

	bufSize := req.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	if req.Preverify {
		if set.Mode != ModeManifest {
			logging.WarnWithContext(logger, "preverify skipped", "preverify_unavailable",
				logging.String(logging.FieldErrorHint, "pass a manifest to enable per-part verification"),
			)
		} else {
			report, err := verifySet(ctx, set, req.Workers, bufSize)
			if err != nil {
				return fail(err)
			}
			logger.Info("preverify passed", logging.Int("parts", len(report.Parts)))
		}
	}

	if err := machine.advance(StateStreaming); err != nil {
		return fail(err)
	}
	tmp, err := c.createTemp(req.OutputPath)
	if err != nil {
		return fail(failures.Wrap(failures.ErrWriteFailure, "create output", req.OutputPath, err))
	}
	committed := false
	defer func() {
		if !committed {
			fileutil.Discard(tmp)
		}
	}()

	stream := &streamer{
		ctx:     ctx,
		logger:  logger,
		out:     tmp,
		whole:   manifest.NewHasher(),
		buf:     make([]byte, bufSize),
		total:   set.TotalLength(),
		sampler: logging.NewProgressSampler(10),
	}
	for _, part := range set.Parts {
		if err := stream.appendPart(part); err != nil {
			return fail(err)
		}
	}

	if err := machine.advance(StateVerifying); err != nil {
		return fail(err)
	}
	res.TotalBytes = stream.written
	res.WholeChecksum = manifest.SumOf(stream.whole)
	if set.Mode == ModeManifest && stream.written != set.Manifest.TotalLength {
		return fail(failures.Wrap(failures.ErrIntegrityMismatch, "verify output",
			fmt.Sprintf("wrote %d bytes, manifest records %d", stream.written, set.Manifest.TotalLength), nil))
	}
	if expected != nil {
		if res.WholeChecksum != *expected {
			return fail(failures.Wrap(failures.ErrIntegrityMismatch, "verify output",
				fmt.Sprintf("whole checksum %s, expected %s", res.WholeChecksum.Short(), expected.Short()), nil))
		}
		res.Verified = true
	} else {
		logging.WarnWithContext(logger, "output not verified", "combine_unverified",
			logging.String(logging.FieldErrorHint, "supply --checksum or combine from the manifest"),
			logging.String("whole_checksum", res.WholeChecksum.String()),
		)
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("combine cancelled: %w", err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(writeFailure("chmod output", req.OutputPath, err))
	}
	committed = true
	if err := fileutil.Commit(tmp, req.OutputPath); err != nil {
		return fail(writeFailure("commit output", req.OutputPath, err))
	}
	if err := machine.advance(StateCommitted); err != nil {
		return fail(err)
	}

	res.Elapsed = time.Since(started)
	logger.Info("combine completed",
		logging.String("output", req.OutputPath),
		logging.Uint64("total_bytes", res.TotalBytes),
		logging.String("whole_checksum", res.WholeChecksum.Short()),
		logging.Bool("verified", res.Verified),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// checkOutputTarget refuses outputs that would overwrite an input of the set.
func checkOutputTarget(output string, set *PartSet) error {
	out, err := filepath.Abs(output)
	if err != nil {
		return failures.Wrap(failures.ErrDestinationUnavailable, "combine", output, err)
	}
	inputs := set.Paths()
	if set.ManifestPath != "" {
		inputs = append(inputs, set.ManifestPath)
	}
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err == nil && abs == out {
			return failures.Wrap(failures.ErrDestinationUnavailable, "combine", output+" is one of the inputs", nil)
		}
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return failures.Wrap(failures.ErrDestinationUnavailable, "combine", output+" is a directory", nil)
	}
	return nil
}

type streamer struct {
	ctx     context.Context
	logger  *slog.Logger
	out     io.Writer
	whole   hash.Hash
	buf     []byte
	total   uint64
	written uint64
	sampler *logging.ProgressSampler
}

// appendPart copies one part into the output, checking its length and, when
// known, its digest before the next part is touched.
func (s *streamer) appendPart(part ResolvedPart) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("combine cancelled: %w", err)
	}
	f, err := os.Open(part.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failures.MissingPart(part.Index, part.Path)
		}
		return failures.Wrap(failures.ErrSourceUnavailable, "open part", part.Path, err)
	}
	defer f.Close()

	partHash := manifest.NewHasher()
	src := &ctxReader{ctx: s.ctx, r: io.LimitReader(f, int64(part.Length)+1)}
	n, err := io.CopyBuffer(io.MultiWriter(s.out, partHash, s.whole), src, s.buf)
	s.written += uint64(n)
	if err != nil {
		switch {
		case src.err != nil && s.ctx.Err() != nil:
			return fmt.Errorf("combine cancelled: %w", s.ctx.Err())
		case src.err != nil:
			return failures.Wrap(failures.ErrSourceUnavailable, "read part", part.Path, src.err)
		default:
			return writeFailure("write output", part.Path, err)
		}
	}
	if uint64(n) != part.Length {
		return failures.CorruptPart(part.Index, part.Path, fmt.Errorf("length %d, want %d", n, part.Length))
	}
	digest := manifest.SumOf(partHash)
	if part.HasChecksum && digest != part.Checksum {
		return failures.CorruptPart(part.Index, part.Path, fmt.Errorf("checksum %s, want %s", digest.Short(), part.Checksum.Short()))
	}

	s.logger.Debug("part appended",
		logging.Part(part.Index),
		logging.String("file", filepath.Base(part.Path)),
		logging.Uint64("part_bytes", part.Length),
	)
	if s.sampler.ShouldLogBytes(s.written, s.total, "streaming") {
		s.logger.Info("combine progress",
			logging.Int("percent", int(logging.Percent(s.written, s.total))),
			logging.Uint64("written_bytes", s.written),
		)
	}
	return nil
}

func writeFailure(operation, path string, err error) error {
	if errors.Is(err, unix.ENOSPC) {
		return failures.Wrap(failures.ErrWriteFailure, operation, path+": disk full", err)
	}
	return failures.Wrap(failures.ErrWriteFailure, operation, path, err)
}
