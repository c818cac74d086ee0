package failures

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceUnavailable          = errors.New("source unavailable")
	ErrDestinationUnavailable     = errors.New("destination unavailable")
	ErrInvalidPartitioning        = errors.New("invalid partitioning")
	ErrWriteFailure               = errors.New("write failure")
	ErrCorruptPart                = errors.New("corrupt part")
	ErrMissingPart                = errors.New("missing part")
	ErrIntegrityMismatch          = errors.New("integrity mismatch")
	ErrUnsupportedManifestVersion = errors.New("unsupported manifest version")
)

// kinds lists every marker in exit code order.
var kinds = []struct {
	marker error
	name   string
	code   int
}{
	{ErrSourceUnavailable, "SourceUnavailable", 2},
	{ErrDestinationUnavailable, "DestinationUnavailable", 3},
	{ErrInvalidPartitioning, "InvalidPartitioning", 4},
	{ErrWriteFailure, "WriteFailure", 5},
	{ErrCorruptPart, "CorruptPart", 6},
	{ErrMissingPart, "MissingPart", 7},
	{ErrIntegrityMismatch, "IntegrityMismatch", 8},
	{ErrUnsupportedManifestVersion, "UnsupportedManifestVersion", 9},
}

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above; nil falls back to ErrWriteFailure.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrWriteFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// PartError reports a failure tied to a single part index. It matches its
// Kind with errors.Is so callers can test for ErrCorruptPart or ErrMissingPart
// without unpacking the index.
type PartError struct {
	Kind  error
	Index uint32
	Path  string
	Err   error
}

// CorruptPart builds a PartError for a part whose length or digest differs
// from its recorded metadata.
func CorruptPart(index uint32, path string, err error) *PartError {
	return &PartError{Kind: ErrCorruptPart, Index: index, Path: path, Err: err}
}

// MissingPart builds a PartError for an ordinal that has no part file.
func MissingPart(index uint32, path string) *PartError {
	return &PartError{Kind: ErrMissingPart, Index: index, Path: path}
}

func (e *PartError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%d)", KindName(e.Kind), e.Index)
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *PartError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns the canonical kind label for err, or "Error" when err
// carries no known marker.
func KindName(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "Error"
}

// ExitCode maps err to the process exit status reported by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.code
		}
	}
	return 1
}

// Detail returns the message of err without the sentinel text of its kind,
// for callers that print KindName alongside it.
func Detail(err error) string {
	msg := err.Error()
	for _, k := range kinds {
		if !errors.Is(err, k.marker) {
			continue
		}
		if trimmed := strings.Replace(msg, k.marker.Error()+": ", "", 1); trimmed != "" {
			return trimmed
		}
		break
	}
	return msg
}

// PartIndex extracts the offending part index when err wraps a PartError.
func PartIndex(err error) (uint32, bool) {
	var pe *PartError
	if errors.As(err, &pe) {
		return pe.Index, true
	}
	return 0, false
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
