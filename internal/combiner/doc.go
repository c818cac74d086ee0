// Package combiner reassembles part files into the file they were split from.
//
// A manifest is the preferred locator: it fixes the part order and carries
// per-part and whole-file BLAKE3 digests. Without one, parts are ordered by
// name and only an externally supplied whole checksum can be checked. Output
// is staged in a temporary file and renamed into place only after
// verification, so a failed or cancelled combine never leaves a file at the
// destination.
package combiner
