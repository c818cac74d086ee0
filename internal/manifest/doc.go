// Package manifest owns the contract shared by the splitter and combiner:
// part naming, the versioned JSON sidecar, and BLAKE3 digests.
//
// The combiner depends only on this package, never on the splitter, so any
// tool that writes the same names and manifest layout can feed it.
package manifest
