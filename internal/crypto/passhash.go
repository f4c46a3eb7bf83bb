// Package crypto holds the admin password hashing and one-time code generation.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("crypto: empty password")

// dummySalt/dummyHash keep the cost of a lookup miss equal to a real check.
var (
	dummySalt = make([]byte, saltLen)
	dummyHash = argon2.IDKey([]byte("-"), dummySalt, argonTime, argonMemory, argonThreads, argonKeyLen)
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewPassword salts and hashes a plaintext password for storage.
func NewPassword(password string) (hash, salt []byte, err error) {
	if password == "" {
		return nil, nil, ErrEmptyPassword
	}
	if salt, err = RandBytes(saltLen); err != nil {
		return nil, nil, err
	}
	return HashPassword([]byte(password), salt), salt, nil
}

// HashPassword returns the Argon2id hash of password with salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword checks password against an expected hash in constant time.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// BurnVerify spends one hash computation and always reports false.
// Used when the account does not exist.
func BurnVerify(password []byte) bool {
	_ = VerifyPassword(password, dummySalt, dummyHash)
	return false
}
