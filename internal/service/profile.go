package service

import (
	"context"
	"errors"
	"fmt"
)

// Profile returns the account a verified token subject refers to.
func (s *Service) Profile(
	ctx context.Context,
	subject string,
) (
	*Profile,
	error,
) {
	identity, err := s.store.GetIdentity(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, subject)
		}
		return nil, fmt.Errorf("%w: failed to retrieve identity: %v", ErrInternal, err)
	}
	return identity.Profile(), nil
}

// Health reports whether the identity store is reachable.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: store unreachable: %v", ErrInternal, err)
	}
	return nil
}
