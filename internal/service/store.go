package service

import (
	"context"
	"time"

	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
)

// IdentityStore handles persistence of user identity data. Lookups for a
// handle that does not exist return an error wrapping ErrAccountNotFound;
// inserting a taken handle returns one wrapping ErrHandleExists.
type IdentityStore interface {
	InsertIdentity(ctx context.Context, identity *Identity) error
	GetIdentity(ctx context.Context, handle string) (*Identity, error)
	UpdateSecret(ctx context.Context, handle string, secret []byte, updatedAt time.Time) error
	Ping(ctx context.Context) error
}

// PasswordHasher is satisfied by *password.Pool.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext string, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// TokenIssuer is satisfied by *tokens.Issuer.
type TokenIssuer interface {
	Issue(subject string) (*tokens.AccessToken, error)
}

// LoginLimiter is satisfied by *limiter.Limiter.
type LoginLimiter interface {
	Check(key string) error
	Reset(key string)
}
