package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1 << 20
	pollInterval = 250 * time.Millisecond
)

// Filter keeps a line when it returns true. A nil Filter keeps every line.
type Filter func(line string) bool

// MatchRun keeps lines that mention the given run ID or its 8 character
// prefix, which is how the console format prints it.
func MatchRun(id string) Filter {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return func(line string) bool {
		return strings.Contains(line, short)
	}
}

// TailOptions controls how much of the file Tail returns.
type TailOptions struct {
	// Limit is the number of trailing lines to return; zero or less returns
	// every line.
	Limit  int
	Filter Filter
}

// TailResult carries the selected lines and the end offset they were read
// up to.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns the last lines of path that pass opts.Filter. A missing file
// yields an empty result.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return TailResult{}, err
	}
	defer file.Close()

	var ring []string
	if opts.Limit > 0 {
		ring = make([]string, 0, opts.Limit)
	}
	var all []string
	start := 0

	offset, err := scanLines(file, func(line string) {
		if opts.Filter != nil && !opts.Filter(line) {
			return
		}
		if opts.Limit <= 0 {
			all = append(all, line)
			return
		}
		if len(ring) < opts.Limit {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % opts.Limit
	})
	if err != nil {
		return TailResult{}, err
	}

	if opts.Limit <= 0 {
		return TailResult{Lines: all, Offset: offset}, nil
	}
	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return TailResult{Lines: lines, Offset: offset}, nil
}

// Follow emits every complete line appended to path after offset, polling
// until ctx is done. It returns nil on cancellation. A truncated file is
// read again from the start.
func Follow(ctx context.Context, path string, offset int64, filter Filter, emit func(string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, filter, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, filter Filter, emit func(string)) (int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	read, err := scanLines(file, func(line string) {
		if filter == nil || filter(line) {
			emit(line)
		}
	})
	if err != nil {
		return offset, err
	}
	return offset + read, nil
}

// scanLines calls fn for each newline terminated line and returns the number
// of bytes consumed. A trailing partial line is left for the next read.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64<<10)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			if len(line) > maxLineBytes {
				line = line[:maxLineBytes]
			}
			fn(strings.TrimRight(line, "\r\n"))
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log file: %w", err)
	}
}

func openLog(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}
