package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Register creates an account. Duplicate handles are rejected before any
// hashing work is done.
func (s *Service) Register(
	ctx context.Context,
	identifier string,
	password string,
) (
	*Profile,
	error,
) {
	handle := NormalizeHandle(identifier)
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.store.GetIdentity(ctx, handle)
	switch {
	case err == nil:
		return nil, ErrHandleExists
	case !errors.Is(err, ErrAccountNotFound):
		return nil, fmt.Errorf("%w: failed to check handle: %v", ErrInternal, err)
	}

	encoded, err := s.hasher.Hash(ctx, password)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	now := s.opts.Now().UTC()
	identity := &Identity{
		ID:        uuid.New(),
		Handle:    handle,
		Secret:    []byte(encoded),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertIdentity(ctx, identity); err != nil {
		// a concurrent registration won the race
		if errors.Is(err, ErrHandleExists) {
			return nil, ErrHandleExists
		}
		return nil, fmt.Errorf("%w: failed to insert identity: %v", ErrInternal, err)
	}

	slog.Info("registered account", "id", identity.ID)
	return identity.Profile(), nil
}
