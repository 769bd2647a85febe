// Package service implements the account operations of the passgate server:
// registration, login, and profile lookup. It orchestrates the password
// hasher, token issuer, and login rate limiter over an identity store.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInternal           = errors.New("internal error")

	// ErrValidation is the parent of every client-correctable input error.
	ErrValidation      = errors.New("validation failed")
	ErrHandleExists    = fmt.Errorf("%w: email already exists", ErrValidation)
	ErrInvalidHandle   = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrInvalidPassword = fmt.Errorf("%w: invalid password", ErrValidation)
)

const (
	MinPasswordLength = 6
	// bcrypt's native input size; longer input would be prehashed
	MaxPasswordLength = 72
)

type Options struct {
	// ResetOnSuccess clears an identifier's attempt window after a
	// successful login. With it off, every attempt counts toward the window
	// regardless of outcome.
	ResetOnSuccess bool

	// Now stamps new identities; defaults to time.Now.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{ResetOnSuccess: true, Now: time.Now}
}

// Service coordinates the authentication gate components. It depends only on
// the interfaces in store.go and is safe for concurrent use.
type Service struct {
	store   IdentityStore
	hasher  PasswordHasher
	issuer  TokenIssuer
	limiter LoginLimiter
	opts    Options

	dummyMu   sync.Mutex
	dummyHash string
}

func New(
	store IdentityStore,
	hasher PasswordHasher,
	issuer TokenIssuer,
	limiter LoginLimiter,
	opts Options,
) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		hasher:  hasher,
		issuer:  issuer,
		limiter: limiter,
		opts:    opts,
	}
}
