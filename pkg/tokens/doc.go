// Package tokens issues and verifies the bearer tokens handed out by the
// passgate login endpoint.
//
// Tokens are HS256 signed JSON Web Tokens carrying:
//
//   - sub: the login identifier the token was issued to
//   - iat: issue time, seconds since the epoch
//   - exp: iat plus Lifetime (24 hours)
//   - jti: a random id, so two tokens issued in the same second differ
//   - iss: only when the issuer was built WithIssuerDomain
//
// # Issuing
//
//	issuer, err := tokens.NewIssuer(secret)
//	if err != nil {
//	    log.Fatal(err) // empty secret
//	}
//
//	token, err := issuer.Issue("alice@example.com")
//	header := "Bearer " + token.Encoded()
//
// # Verifying
//
//	token, err := issuer.Verify(encoded)
//	switch {
//	case errors.Is(err, tokens.ErrTokenExpired):
//	    // genuine token past its lifetime; ask the user to log in again
//	case errors.Is(err, tokens.ErrTokenInvalid):
//	    // forged, truncated, or otherwise unusable
//	}
//	subject := token.Subject()
//
// The signing secret is copied once by NewIssuer and never mutated, so one
// Issuer can be shared by every request goroutine.
package tokens
