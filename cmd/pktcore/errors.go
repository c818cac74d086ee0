package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pktcore/internal/failures"
)

// printError writes the single terminal error line. Part failures already
// begin with their kind and index; other kinds are prefixed with theirs.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, formatError(err))
}

func formatError(err error) string {
	var pe *failures.PartError
	switch {
	case errors.As(err, &pe):
		return "error: " + pe.Error()
	case errors.Is(err, context.Canceled):
		return "error: cancelled"
	}
	if kind := failures.KindName(err); kind != "Error" {
		return fmt.Sprintf("error: %s: %s", kind, failures.Detail(err))
	}
	return fmt.Sprintf("error: %v", err)
}
