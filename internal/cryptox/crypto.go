// Package cryptox derives the password digests the client sends instead of
// plaintext passwords.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Salt derives a per-user salt from the username, so the same password gives
// different digests for different users without the server storing a salt.
func Salt(username string) []byte {
	sum := sha256.Sum256([]byte("replichat:" + username))
	return sum[:16]
}

func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashPassword returns the hex-encoded Argon2id digest of password for
// username. The server only ever sees this value.
func HashPassword(username string, password []byte) string {
	return hex.EncodeToString(DeriveKey(password, Salt(username)))
}
