package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ==============================================

// AccessTokenClaims is the JSON payload of an access token. It sits between
// the wire representation and the AccessToken Go struct.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
}

func (claims *AccessTokenClaims) validate(issuer *Issuer) error {
	if claims.Subject == "" {
		return invalid(errTokenMissingClaim, "sub")
	}
	if claims.IssuedAt == nil {
		return invalid(errTokenMissingClaim, "iat")
	}
	if claims.ExpiresAt == nil {
		return invalid(errTokenMissingClaim, "exp")
	}

	if issuer.issuerDomain != "" && claims.Issuer != issuer.issuerDomain {
		return invalid(errTokenInvalidIssuer, claims.Issuer)
	}

	now := issuer.now()
	if now.After(claims.ExpiresAt.Time) {
		return &validateError{
			context: "expired at " + claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
			kind:    ErrTokenExpired,
		}
	}

	return nil
}

// ==============================================

// AccessToken is a signed, time-bounded statement of identity. It is the
// only thing the server hands a client after login, and the only thing a
// client presents afterwards; nothing about it is stored server-side.
type AccessToken struct {
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	subject    string
	id         string
	encoded    string
}

func (t *AccessToken) Issuer() string        { return t.issuer }
func (t *AccessToken) IssuedAt() time.Time   { return t.issuedAt }
func (t *AccessToken) Expiration() time.Time { return t.expiration }
func (t *AccessToken) Subject() string       { return t.subject }
func (t *AccessToken) ID() string            { return t.id }
func (t *AccessToken) Encoded() string       { return t.encoded }

// Claims returns an immutable copy of the token's identity claims.
func (t *AccessToken) Claims() Claims {
	return Claims{
		Subject:   t.subject,
		IssuedAt:  t.issuedAt,
		ExpiresAt: t.expiration,
		ID:        t.id,
	}
}

func (token *AccessToken) intoClaims() *AccessTokenClaims {
	claims := &AccessTokenClaims{}
	claims.Issuer = token.issuer
	claims.Subject = token.subject
	claims.ID = token.id
	claims.IssuedAt = jwt.NewNumericDate(token.issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(token.expiration)
	return claims
}

func (token *AccessToken) fromClaims(claims *AccessTokenClaims, encToken string) {
	token.issuer = claims.Issuer
	token.subject = claims.Subject
	token.id = claims.ID
	token.issuedAt = claims.IssuedAt.Time
	token.expiration = claims.ExpiresAt.Time
	token.encoded = encToken
}
