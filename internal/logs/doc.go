// Package logs reads the pktcore log file for `pktcore logs`.
//
// Tail returns the last lines of the file, optionally narrowed to one split
// or combine run, together with the byte offset to resume from. Follow polls
// that offset until the context is cancelled.
package logs
