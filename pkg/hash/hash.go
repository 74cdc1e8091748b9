// Package hash provides the content-addressing primitive shared by the
// state model and diff engine: BLAKE3-256 hashing with constant-time
// comparison (spec.md §4.3.5), grounded on gfbonny-cxdb's use of
// github.com/zeebo/blake3 for content addressing.
package hash

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes for BLAKE3-256.
const Size = 32

// Sum is a 32-byte BLAKE3-256 digest. The zero Sum represents "absent"
// (⊥ in spec.md §4.4.1) and must never collide with a real digest
// because it is never produced by Of/OfReader.
type Sum [Size]byte

// Of hashes b and returns its BLAKE3-256 digest.
func Of(b []byte) Sum {
	var s Sum
	h := blake3.Sum256(b)
	copy(s[:], h[:])
	return s
}

// IsZero reports whether s represents the absent/⊥ hash.
func (s Sum) IsZero() bool { return s == Sum{} }

// Equal compares two digests in constant time, as required when a hash
// may encode the content of an encrypted secret (spec.md §4.3.5).
func (s Sum) Equal(other Sum) bool {
	return subtle.ConstantTimeCompare(s[:], other[:]) == 1
}

func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Bytes returns a copy of the digest bytes.
func (s Sum) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, s[:])
	return b
}

// FromBytes reconstructs a Sum from a byte slice of length Size.
func FromBytes(b []byte) (Sum, bool) {
	if len(b) != Size {
		return Sum{}, false
	}
	var s Sum
	copy(s[:], b)
	return s, true
}
