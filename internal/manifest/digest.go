package manifest

import (
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm names the digest recorded in every manifest.
const Algorithm = "blake3-256"

// DigestSize is the byte length of a Digest.
const DigestSize = 32

// Digest is a BLAKE3-256 checksum. It encodes as lowercase hex in JSON.
type Digest [DigestSize]byte

// NewHasher returns a streaming hasher producing Digest-sized sums.
func NewHasher() hash.Hash {
	return blake3.New()
}

// SumOf finalizes h into a Digest. h must produce at least DigestSize bytes.
func SumOf(h hash.Hash) Digest {
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Sum computes the digest of data in one call.
func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// ParseDigest decodes a hex digest, tolerating surrounding whitespace and an
// optional "blake3-256:" prefix.
func ParseDigest(value string) (Digest, error) {
	var d Digest
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, Algorithm+":")
	raw, err := hex.DecodeString(value)
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != DigestSize {
		return d, fmt.Errorf("decode digest: got %d bytes, want %d", len(raw), DigestSize)
	}
	copy(d[:], raw)
	return d, nil
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Short returns the first 12 hex characters, for tables and log lines.
func (d Digest) Short() string {
	return d.String()[:12]
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
