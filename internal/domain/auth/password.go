package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize        = 16
	keySize         = 32
	pbkdf2Iteration = 10000
)

// HashPassword derives a PBKDF2-HMAC-SHA256 key from password with a fresh
// random salt and returns base64(salt || key).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "generate salt")
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iteration, keySize, sha256.New)

	buf := make([]byte, 0, saltSize+keySize)
	buf = append(buf, salt...)
	buf = append(buf, key...)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// VerifyPassword reports whether password matches a value produced by
// HashPassword. Malformed stored values never verify.
func VerifyPassword(password, stored string) bool {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || len(raw) != saltSize+keySize {
		return false
	}

	salt, want := raw[:saltSize], raw[saltSize:]
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iteration, keySize, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
