// Package main hosts the pktcore CLI entrypoint and command graph.
//
// The Cobra command tree maps split, combine, verify, list, show and logs onto the
// internal splitter and combiner packages and renders their results as human
// summaries or JSON on stdout. Logs and the single terminal error line go to
// stderr, and the exit status identifies the error kind, so a frontend can
// relay both channels verbatim.
package main
