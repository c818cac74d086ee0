// Package failures defines the error kinds shared by the splitter, combiner,
// and manifest packages.
//
// Every terminal failure carries exactly one sentinel marker so the CLI can
// print a single descriptive line and choose a distinct exit status. Part
// level failures (CorruptPart, MissingPart) are reported through PartError,
// which keeps the offending index while still matching its marker with
// errors.Is.
package failures
