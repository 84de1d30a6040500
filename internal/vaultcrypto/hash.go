package vaultcrypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent — SHA-256 hex-дайджест содержимого. Считается по открытому
// тексту при загрузке и сверяется после каждой расшифровки.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyContent сравнивает дайджест данных с сохранённым.
// false — признак подмены содержимого (tamper detected).
func VerifyContent(data []byte, expectedHex string) bool {
	return HashContent(data) == expectedHex
}
