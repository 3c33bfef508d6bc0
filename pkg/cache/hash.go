package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
)

// hashKey returns prefix followed by the SHA-256 of the JSON-encoded parts,
// e.g. "stack:9f86d0...". The encoder writes straight into the digest.
func hashKey(prefix string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashEncoded returns the hex SHA-256 of whatever encode writes. Beds are
// hashed this way so a large packing is never buffered whole for its key.
func HashEncoded(encode func(io.Writer) error) (string, error) {
	h := sha256.New()
	if err := encode(h); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
