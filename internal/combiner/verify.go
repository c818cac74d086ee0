package combiner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sync/errgroup"

	"pktcore/internal/failures"
	"pktcore/internal/manifest"
)

// DefaultWorkers bounds parallel part reads when a request leaves Workers
// unset.
const DefaultWorkers = 4

// PartCheck is the verification outcome of a single part.
type PartCheck struct {
	Index    uint32
	Path     string
	Length   uint64
	Checksum manifest.Digest
	Err      error
}

// OK reports whether the part matched its manifest entry.
func (c PartCheck) OK() bool {
	return c.Err == nil
}

// VerifyReport collects the per-part results in index order and the digest of
// the parts concatenated in that order.
type VerifyReport struct {
	Manifest      *manifest.Manifest
	Parts         []PartCheck
	WholeChecksum manifest.Digest
	TotalBytes    uint64
}

// Failed returns the checks that did not pass, lowest index first.
func (r *VerifyReport) Failed() []PartCheck {
	var failed []PartCheck
	for _, p := range r.Parts {
		if !p.OK() {
			failed = append(failed, p)
		}
	}
	return failed
}

// Verify checks every part named by the manifest at manifestPath without
// writing any output. Up to workers parts are read concurrently; the
// whole-file digest is computed by a sequential pass in index order that
// runs alongside them, so the result never depends on completion order.
// Missing or damaged parts are reported per part rather than stopping the
// run.
func Verify(ctx context.Context, manifestPath string, workers int) (*VerifyReport, error) {
	m, err := loadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return verifySet(ctx, partSetFromManifest(m, manifestPath), workers, 0)
}

// verifySet checks a manifest-mode set. The returned error is the failure of
// the lowest-indexed bad part, IntegrityMismatch when every part passes but
// the whole digest differs, or the context error.
func verifySet(ctx context.Context, set *PartSet, workers, bufSize int) (*VerifyReport, error) {
	if set.Mode != ModeManifest || set.Manifest == nil {
		return nil, errors.New("verify requires a manifest")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if bufSize <= 0 {
		bufSize = 256 << 10
	}

	report := &VerifyReport{Manifest: set.Manifest, Parts: make([]PartCheck, len(set.Parts))}

	g, gctx := errgroup.WithContext(ctx)
	// One slot is reserved for the ordered whole-file pass.
	g.SetLimit(workers + 1)

	var wholeErr error
	g.Go(func() error {
		digest, total, err := hashConcatenated(gctx, set.Parts, bufSize)
		report.WholeChecksum = digest
		report.TotalBytes = total
		wholeErr = err
		return contextError(gctx, err)
	})
	for i, part := range set.Parts {
		g.Go(func() error {
			check := PartCheck{Index: part.Index, Path: part.Path}
			digest, n, err := hashFile(gctx, part.Path, part.Length, make([]byte, bufSize))
			check.Length = n
			check.Checksum = digest
			switch {
			case err != nil && gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, fs.ErrNotExist):
				check.Err = failures.MissingPart(part.Index, part.Path)
			case err != nil:
				check.Err = failures.CorruptPart(part.Index, part.Path, err)
			case n != part.Length:
				check.Err = failures.CorruptPart(part.Index, part.Path, fmt.Errorf("length %d, want %d", n, part.Length))
			case digest != part.Checksum:
				check.Err = failures.CorruptPart(part.Index, part.Path, fmt.Errorf("checksum %s, want %s", digest.Short(), part.Checksum.Short()))
			}
			report.Parts[i] = check
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("verify cancelled: %w", err)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return report, failed[0].Err
	}
	if wholeErr != nil {
		return report, failures.Wrap(failures.ErrIntegrityMismatch, "verify", "whole-file pass failed", wholeErr)
	}
	if report.TotalBytes != set.Manifest.TotalLength || report.WholeChecksum != set.Manifest.WholeChecksum {
		return report, failures.Wrap(failures.ErrIntegrityMismatch, "verify",
			fmt.Sprintf("whole checksum %s, manifest records %s", report.WholeChecksum.Short(), set.Manifest.WholeChecksum.Short()), nil)
	}
	return report, nil
}

// hashFile digests up to limit+1 bytes of path so an oversized part shows up
// as a length mismatch.
func hashFile(ctx context.Context, path string, limit uint64, buf []byte) (manifest.Digest, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return manifest.Digest{}, 0, err
	}
	defer f.Close()
	h := manifest.NewHasher()
	n, err := io.CopyBuffer(h, &ctxReader{ctx: ctx, r: io.LimitReader(f, int64(limit)+1)}, buf)
	if err != nil {
		return manifest.Digest{}, uint64(n), err
	}
	return manifest.SumOf(h), uint64(n), nil
}

func hashConcatenated(ctx context.Context, parts []ResolvedPart, bufSize int) (manifest.Digest, uint64, error) {
	h := manifest.NewHasher()
	buf := make([]byte, bufSize)
	var total uint64
	for _, part := range parts {
		f, err := os.Open(part.Path)
		if err != nil {
			return manifest.Digest{}, total, err
		}
		n, err := io.CopyBuffer(h, &ctxReader{ctx: ctx, r: f}, buf)
		f.Close()
		total += uint64(n)
		if err != nil {
			return manifest.Digest{}, total, err
		}
	}
	return manifest.SumOf(h), total, nil
}

func contextError(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		c.err = err
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		c.err = err
	}
	return n, err
}
