// Package splitter partitions a file into balanced, checksummed part files
// and writes the manifest the combiner reassembles them from.
//
// The source is read exactly once through a single fixed-size buffer. Parts
// are staged as hidden temporaries and renamed into place only after every
// range has been written; any failure or cancellation removes whatever the
// call created.
package splitter
