package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/outofforest/hashfinder/types"
)

// Length is the number of characters in the digest.
const Length = 2 * sha256.Size

// Compute returns hex-encoded SHA-256 digest of the big-endian encoding of the candidate.
func Compute(candidate types.Candidate) string {
	var b [types.CandidateLength]byte
	binary.BigEndian.PutUint32(b[:], uint32(candidate))
	sum := sha256.Sum256(b[:])
	return hex.EncodeToString(sum[:])
}

// IsMatch tells if the last zeroCount characters of the digest are all '0'.
// Digest shorter than zeroCount never matches.
func IsMatch(digest string, zeroCount uint64) bool {
	if zeroCount > uint64(len(digest)) {
		return false
	}
	for i := len(digest) - int(zeroCount); i < len(digest); i++ {
		if digest[i] != '0' {
			return false
		}
	}
	return true
}
