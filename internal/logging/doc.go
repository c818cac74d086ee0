// Package logging assembles structured slog loggers and formatting helpers used
// by the pktcore commands.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so split and combine code can tag log
// lines with the operation name and split ID. Console output renders byte
// counts in human units. Logs go to stderr; stdout belongs to command output.
package logging
