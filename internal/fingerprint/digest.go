package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the length of a digest in bytes (SHA-512)
const Size = 64

// ErrDigestSize is returned when decoding a digest of the wrong length
var ErrDigestSize = errors.New("digest size mismatch")

// Digest is a fixed-size content fingerprint.
// The zero value is the "no valid data" sentinel.
type Digest [Size]byte

// Zero is the sentinel digest
var Zero Digest

// IsZero reports whether d is the sentinel digest
func (d Digest) IsZero() bool {
	return d == Zero
}

// Bytes returns a copy of the digest as a byte slice
func (d Digest) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, d[:])
	return b
}

// Hex returns the full lowercase hex encoding
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String returns a short form suitable for logs
func (d Digest) String() string {
	return d.Hex()[:16]
}

// FromBytes converts a stored blob into a Digest.
// A blob of the wrong length is copied as far as it fits and ErrDigestSize
// is returned alongside the (truncated or zero-padded) digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	n := copy(d[:], b)
	if n != len(b) || len(b) != Size {
		return d, fmt.Errorf("%w: got %d bytes, want %d", ErrDigestSize, len(b), Size)
	}
	return d, nil
}

// ParseHex decodes a hex-encoded digest
func ParseHex(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("failed to decode digest: %w", err)
	}
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: got %d bytes, want %d", ErrDigestSize, len(b), Size)
	}
	return FromBytes(b)
}
