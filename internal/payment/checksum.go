package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const checksumSeparator = "###"

// Checksum computes PhonePe's X-VERIFY value: SHA256(payload + path + saltKey) + "###" + saltIndex.
func Checksum(payload, path, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(payload + path + saltKey))
	return hex.EncodeToString(sum[:]) + checksumSeparator + saltIndex
}

// VerifyChecksum compares header against the expected checksum in constant time.
func VerifyChecksum(header, payload, path, saltKey, saltIndex string) bool {
	expected := Checksum(payload, path, saltKey, saltIndex)
	return subtle.ConstantTimeCompare([]byte(header), []byte(expected)) == 1
}
