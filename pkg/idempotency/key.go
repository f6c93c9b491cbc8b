package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128
	KeyPrefix    = "checkpoint:idempotency"
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key contains invalid characters")
	ErrKeyReused   = errors.New("idempotency key was already used with a different payload")

	validKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

// Validate checks the length and alphabet of a client supplied key.
func Validate(key string) error {
	switch {
	case len(key) < MinKeyLength:
		return ErrKeyTooShort
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case !validKeyPattern.MatchString(key):
		return ErrKeyInvalid
	}

	return nil
}

// BuildCacheKey scopes a client key to the route it was sent to.
// The method is upper-cased so "post" and "POST" share a slot.
func BuildCacheKey(method, path, idempotencyKey string) string {
	combined := strings.ToUpper(method) + ":" + path + ":" + idempotencyKey
	hash := sha256.Sum256([]byte(combined))

	return KeyPrefix + ":" + hex.EncodeToString(hash[:])
}

// Fingerprint identifies a request payload so a replay can be told apart from key reuse.
func Fingerprint(contentType string, body []byte) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(contentType)
	_, _ = digest.Write([]byte{0})
	_, _ = digest.Write(body)

	return strconv.FormatUint(digest.Sum64(), 16)
}

// CheckReplay returns ErrKeyReused when a stored fingerprint does not match the incoming one.
// An empty stored fingerprint predates fingerprinting and always matches.
func CheckReplay(stored, incoming string) error {
	if stored == "" || stored == incoming {
		return nil
	}

	return ErrKeyReused
}
