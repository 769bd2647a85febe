package client

import "context"

// Authenticator is the subset of the API most services need.
// Consuming projects should depend on this interface rather than *Client
// to enable testing with mock implementations.
type Authenticator interface {
	Login(ctx context.Context, email string, password string) (*Token, error)
	Profile(ctx context.Context, token string) (*Profile, error)
}

// Compile-time check that *Client implements Authenticator.
var _ Authenticator = (*Client)(nil)
