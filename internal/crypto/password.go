// Package crypto implements password digests for stored user accounts.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/argon2"
)

// Hasher turns passwords into stored digests and checks them.
type Hasher interface {
	Digest(password string) (string, error)
	Verify(password, digest string) bool
	// NeedsRehash reports whether a verified digest should be replaced.
	NeedsRehash(digest string) bool
}

const argonPrefix = "argon2id$"

// Argon2Params tune the argon2id key derivation.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultArgon2Params are tuned for interactive logins.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// Argon2Hasher produces salted argon2id digests. It still accepts digests
// written with LegacyChecksum so old accounts can log in and be upgraded.
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(params Argon2Params) *Argon2Hasher {
	return &Argon2Hasher{params: params}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

func (h *Argon2Hasher) Digest(password string) (string, error) {
	salt, err := RandBytes(h.params.SaltLen)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := h.derive([]byte(password), salt)
	enc := base64.RawStdEncoding
	return argonPrefix + enc.EncodeToString(salt) + "$" + enc.EncodeToString(key), nil
}

func (h *Argon2Hasher) Verify(password, digest string) bool {
	if !strings.HasPrefix(digest, argonPrefix) {
		return LegacyChecksum{}.Verify(password, digest)
	}
	parts := strings.Split(strings.TrimPrefix(digest, argonPrefix), "$")
	if len(parts) != 2 {
		return false
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := enc.DecodeString(parts[1])
	if err != nil || len(expected) != int(h.params.KeyLen) {
		return false
	}
	got := h.derive([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

func (h *Argon2Hasher) NeedsRehash(digest string) bool {
	return !strings.HasPrefix(digest, argonPrefix)
}

func (h *Argon2Hasher) derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
}

// LegacyChecksum is the 32-bit rolling checksum (h = h*31 + c over UTF-16
// code units) the browser app stored as a "password". It is NOT a password
// hash: it is unsalted, fast and trivially collidable. Only use it to stay
// compatible with existing data.
type LegacyChecksum struct{}

func (LegacyChecksum) Digest(password string) (string, error) {
	return legacyChecksum(password), nil
}

func (LegacyChecksum) Verify(password, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(legacyChecksum(password)), []byte(digest)) == 1
}

func (LegacyChecksum) NeedsRehash(string) bool { return false }

func legacyChecksum(password string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(password)) {
		h = (h << 5) - h + int32(unit)
	}
	return strconv.FormatInt(int64(h), 10)
}
