package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dchest/siphash"
)

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainStatement = "shapeq/statement/v1"
)

// siphash keys for in-memory structural hashes. These hashes are never
// persisted.
const (
	hashK0 = 0x736861706571756b
	hashK1 = 0x6578707265737369
)

// Hash64 returns a fast structural hash of data.
func Hash64(data []byte) uint64 {
	return siphash.Hash(hashK0, hashK1, data)
}

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of v under domain.
// v is serialized with MarshalCanonical, so map key order does not matter.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}
