package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenHash в базе хранится только hex SHA-256 токена доступа.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
