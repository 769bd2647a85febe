package tokens

import (
	"errors"
	"fmt"
	"time"
)

// Lifetime is how long an issued access token stays valid.
const Lifetime = 24 * time.Hour

var (
	// ErrTokenInvalid covers bad signatures, malformed structure, missing
	// claims, and a foreign issuer.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned only for tokens whose signature checked out.
	ErrTokenExpired = errors.New("token expired")
	// ErrSigningFailure means the issuer cannot sign; it is never caused by
	// client input.
	ErrSigningFailure = errors.New("signing failure")
)

var (
	errTokenMalformed     = errors.New("token malformed")
	errTokenBadSignature  = errors.New("token bad signature")
	errTokenMissingClaim  = errors.New("token missing claim")
	errTokenInvalidIssuer = errors.New("token invalid issuer")
)

// validateError keeps the detailed reason a token was refused while
// reporting only its kind through errors.Is.
type validateError struct {
	context string
	kind    error
}

func (e *validateError) Context() string { return e.context }
func (e *validateError) Error() string   { return fmt.Sprintf("%v: %s", e.kind, e.context) }
func (e *validateError) Unwrap() error   { return e.kind }

func invalid(reason error, detail string) *validateError {
	return &validateError{
		context: fmt.Sprintf("%v: %s", reason, detail),
		kind:    ErrTokenInvalid,
	}
}

// Claims is the decoded identity carried by an access token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
