// Package password hashes and verifies account passwords.
//
// Hashes are self-describing: the encoded string names its algorithm and
// parameters, so a Hasher configured for one scheme still verifies hashes
// written under another.
package password

import (
	"errors"
	"fmt"
)

// ErrHashFailure marks a hash that cannot be produced or parsed. A wrong
// password is not a failure; Verify reports it as false.
var ErrHashFailure = errors.New("hash failure")

type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     Argon2Params
}

func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: DefaultBcryptCost,
		Argon2:     DefaultArgon2Params(),
	}
}

type scheme interface {
	hash(plaintext string) (string, error)
	verify(plaintext string, encoded string) (bool, error)
	recognizes(encoded string) bool
	weakerThanConfigured(encoded string) bool
}

// Hasher produces hashes with one configured scheme and verifies hashes from
// any supported scheme. It holds no mutable state.
type Hasher struct {
	primary scheme
	schemes []scheme
}

func NewHasher(
	cfg Config,
) (
	*Hasher,
	error,
) {
	bc, err := newBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	ar, err := newArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	h := &Hasher{schemes: []scheme{bc, ar}}
	switch cfg.Algorithm {
	case AlgorithmBcrypt, "":
		h.primary = bc
	case AlgorithmArgon2id:
		h.primary = ar
	default:
		return nil, fmt.Errorf("unsupported password algorithm: %q", cfg.Algorithm)
	}
	return h, nil
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	return h.primary.hash(plaintext)
}

func (h *Hasher) Verify(plaintext string, encoded string) (bool, error) {
	s := h.schemeFor(encoded)
	if s == nil {
		return false, fmt.Errorf("%w: unrecognized hash format", ErrHashFailure)
	}
	return s.verify(plaintext, encoded)
}

// NeedsRehash reports whether encoded was produced by a different scheme
// or with weaker parameters than h would use today.
func (h *Hasher) NeedsRehash(encoded string) bool {
	s := h.schemeFor(encoded)
	if s == nil {
		return false
	}
	if s != h.primary {
		return true
	}
	return s.weakerThanConfigured(encoded)
}

func (h *Hasher) schemeFor(encoded string) scheme {
	for _, s := range h.schemes {
		if s.recognizes(encoded) {
			return s
		}
	}
	return nil
}
