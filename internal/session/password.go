package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

func b64Encode(b []byte) string { return base64.RawStdEncoding.EncodeToString(b) }

func b64Decode(s string) ([]byte, error) { return base64.RawStdEncoding.DecodeString(s) }

// ErrInvalidPasswordHash is returned when a stored hash does not match
// the expected encoding produced by HashPassword.
var ErrInvalidPasswordHash = errors.New("session: invalid password hash encoding")

// argon2 tuning parameters, chosen per the OWASP baseline recommendation
// for argon2id (1 iteration is only safe at memory >= 64MiB; spec.md
// does not pin exact values so these are the defaults carried forward).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	saltSize     = 16
)

// HashPassword derives an argon2id hash for password and encodes it,
// salt included, as "$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>"
// (base64 raw-std, matching the reference encoding argon2 libraries
// across the ecosystem use so hashes remain portable).
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("session: generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		b64Encode(salt), b64Encode(hash))
	return encoded, nil
}

// VerifyPassword reports whether password matches an encoded hash
// produced by HashPassword, using a constant-time comparison.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidPasswordHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidPasswordHash
	}

	var memory uint32
	var time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidPasswordHash
	}

	salt, err := b64Decode(parts[4])
	if err != nil {
		return false, ErrInvalidPasswordHash
	}
	want, err := b64Decode(parts[5])
	if err != nil {
		return false, ErrInvalidPasswordHash
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
