package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashInput returns the hex SHA-256 of the canonical JSON encoding of rec.
// encoding/json sorts map keys, so equal records hash equally.
func HashInput(rec map[string]any) string {
	if len(rec) == 0 {
		return ""
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
