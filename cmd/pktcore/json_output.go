package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"pktcore/internal/manifest"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type partJSON struct {
	Index    uint32 `json:"index"`
	File     string `json:"file"`
	Offset   uint64 `json:"byte_offset,omitempty"`
	Length   uint64 `json:"length"`
	Checksum string `json:"checksum,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func partsJSON(parts []manifest.Part) []partJSON {
	out := make([]partJSON, 0, len(parts))
	for _, p := range parts {
		out = append(out, partJSON{
			Index:    p.Index,
			File:     p.File,
			Offset:   p.Offset,
			Length:   p.Length,
			Checksum: p.Checksum.String(),
		})
	}
	return out
}
