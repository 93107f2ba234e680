package attr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainAttrs separates attribute hashes from any other content hash.
const DomainAttrs = "arbor/attrs/v1"

// Hash returns a content hash of an attribute set.
// Format: hex(SHA256(domain + 0x00 + canonical JSON)).
// Equal maps always hash equal; the journal stores it next to each mutation.
func Hash(m Map) (string, error) {
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("hash attrs: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(DomainAttrs))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
