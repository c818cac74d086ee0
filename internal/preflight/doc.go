// Package preflight provides readiness checks for the filesystem paths a
// split or combine depends on.
//
// These checks run in two contexts:
//   - The splitter and combiner call RunSplit/RunCombine before creating any
//     file, so an unreadable source or a full disk fails fast without leaving
//     partial parts behind.
//   - The CLI "split --dry-run" command renders the individual results as
//     status lines.
//
// The free space check is skipped when the caller passes zero bytes needed.
package preflight
