package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used by production configs; tests drop to bcrypt.MinCost.
const DefaultBcryptCost = bcrypt.DefaultCost

// bcrypt reads at most 72 bytes of input. Longer passwords are condensed to a
// 44 byte digest first, so every byte counts and hashing never fails on length.
const bcryptMaxInput = 72

var bcryptPrehashKey = []byte("passgate/bcrypt-prehash/v1")

func bcryptInput(plaintext string) []byte {
	if len(plaintext) <= bcryptMaxInput {
		return []byte(plaintext)
	}
	mac := hmac.New(sha256.New, bcryptPrehashKey)
	mac.Write([]byte(plaintext))
	sum := mac.Sum(nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum)
	return out
}

type bcryptScheme struct {
	cost int
}

func newBcrypt(cost int) (*bcryptScheme, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within %d..%d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &bcryptScheme{cost: cost}, nil
}

func (b *bcryptScheme) hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailure, err)
	}
	return string(hash), nil
}

func (b *bcryptScheme) verify(plaintext string, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), bcryptInput(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashFailure, err)
	}
}

func (b *bcryptScheme) recognizes(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func (b *bcryptScheme) weakerThanConfigured(encoded string) bool {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return false
	}
	return cost < b.cost
}
