// Package client is a Go client for the passgate HTTP API.
//
// Backend services and tools use it to register accounts, log in, and read
// the profile behind an access token without hand-writing requests against
// the JSON envelope.
//
// # Quick Start
//
//	c := client.New("https://auth.example.com")
//
//	if _, err := c.Register(ctx, "a@example.com", "secret123"); err != nil {
//	    return err
//	}
//
//	token, err := c.Login(ctx, "a@example.com", "secret123")
//	if err != nil {
//	    return err
//	}
//
//	profile, err := c.Profile(ctx, token.Token)
//
// # Error Handling
//
// Failures reported by the server come back as *APIError, which matches the
// package's sentinel errors with errors.Is:
//
//	_, err := c.Login(ctx, email, password)
//	switch {
//	case errors.Is(err, client.ErrInvalidCredentials):
//	    // wrong email or password
//	case errors.Is(err, client.ErrRateLimited):
//	    var apiErr *client.APIError
//	    errors.As(err, &apiErr)
//	    // wait apiErr.RetryAfter before trying again
//	case errors.Is(err, client.ErrRequest):
//	    // the server could not be reached
//	}
//
// # Testing
//
// For testability, depend on the Authenticator interface rather than *Client.
package client
