package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
)

// Login checks the identifier's attempt window, verifies the password, and
// issues an access token. Throttled identifiers get the limiter's error
// unchanged and never reach the hasher. Unknown identifiers and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(
	ctx context.Context,
	identifier string,
	password string,
) (
	*tokens.AccessToken,
	error,
) {
	handle := NormalizeHandle(identifier)

	if err := s.limiter.Check(handle); err != nil {
		return nil, err
	}

	if err := s.authenticate(ctx, handle, password); err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to issue access token: %v", ErrInternal, err)
	}

	if s.opts.ResetOnSuccess {
		s.limiter.Reset(handle)
	}
	return token, nil
}

func (s *Service) authenticate(
	ctx context.Context,
	handle string,
	password string,
) error {
	identity, err := s.store.GetIdentity(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// spend the same hashing work as a real check
			s.verifyDummy(ctx, password)
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: failed to retrieve identity: %v", ErrInternal, err)
	}

	ok, err := s.hasher.Verify(ctx, password, string(identity.Secret))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: failed to verify password: %v", ErrInternal, err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(string(identity.Secret)) {
		s.rehash(ctx, identity, password)
	}
	return nil
}

// rehash upgrades a stored hash to the current scheme. The login has already
// succeeded, so failures are only logged.
func (s *Service) rehash(
	ctx context.Context,
	identity *Identity,
	password string,
) {
	encoded, err := s.hasher.Hash(ctx, password)
	if err != nil {
		slog.Warn("failed to rehash password", "id", identity.ID, "error", err)
		return
	}
	if err := s.store.UpdateSecret(ctx, identity.Handle, []byte(encoded), s.opts.Now()); err != nil {
		slog.Warn("failed to store rehashed password", "id", identity.ID, "error", err)
		return
	}
	slog.Info("upgraded password hash", "id", identity.ID)
}

func (s *Service) verifyDummy(
	ctx context.Context,
	password string,
) {
	dummy := s.dummy(ctx)
	if dummy == "" {
		return
	}
	_, _ = s.hasher.Verify(ctx, password, dummy)
}

// dummy returns the hash unknown identifiers are verified against, building
// it on first use. It is only stored once built, so a failure is retried by
// the next caller.
func (s *Service) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash != "" {
		return s.dummyHash
	}

	// the hash outlives this request
	hash, err := s.hasher.Hash(context.WithoutCancel(ctx), "passgate-dummy-password")
	if err != nil {
		slog.Warn("failed to prepare dummy hash", "error", err)
		return ""
	}
	s.dummyHash = hash
	return hash
}
