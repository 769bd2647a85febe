// Package authgate guards protected routes with a bearer token.
//
// Every request passes through Authenticate: the Authorization header must
// be exactly "Bearer <token>", the token must verify, and only then are its
// claims attached to the request context and the next handler invoked. Any
// failure short-circuits; the next handler never runs.
package authgate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	ReasonMissingHeader = "no authorization header"
	ReasonInvalidFormat = "invalid header format"
	ReasonInvalidToken  = "invalid token"
	ReasonTokenExpired  = "token expired"
)

// UnauthorizedError carries the client-facing reason a request was refused
// and, for token failures, the underlying verification error.
type UnauthorizedError struct {
	Reason string
	Err    error
}

func (e *UnauthorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrUnauthorized, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrUnauthorized, e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

func (e *UnauthorizedError) Unwrap() error { return e.Err }

// Verifier is satisfied by *tokens.Issuer.
type Verifier interface {
	Verify(encoded string) (*tokens.AccessToken, error)
}

// ErrorResponder renders a refused request. err is always an
// *UnauthorizedError.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

type Gate struct {
	verifier Verifier
	onError  ErrorResponder
}

func New(
	verifier Verifier,
	onError ErrorResponder,
) *Gate {
	if onError == nil {
		onError = plainResponder
	}
	return &Gate{verifier: verifier, onError: onError}
}

const bearerPrefix = "Bearer "

// Authenticate extracts and verifies the bearer token on r.
func (g *Gate) Authenticate(
	r *http.Request,
) (
	tokens.Claims,
	error,
) {
	values := r.Header.Values("Authorization")
	if len(values) == 0 {
		return tokens.Claims{}, &UnauthorizedError{Reason: ReasonMissingHeader}
	}
	if len(values) > 1 {
		return tokens.Claims{}, &UnauthorizedError{Reason: ReasonInvalidFormat}
	}

	encoded, ok := strings.CutPrefix(values[0], bearerPrefix)
	if !ok || encoded == "" || strings.ContainsAny(encoded, " \t\r\n") {
		return tokens.Claims{}, &UnauthorizedError{Reason: ReasonInvalidFormat}
	}

	token, err := g.verifier.Verify(encoded)
	switch {
	case err == nil:
		return token.Claims(), nil
	case errors.Is(err, tokens.ErrTokenExpired):
		return tokens.Claims{}, &UnauthorizedError{Reason: ReasonTokenExpired, Err: err}
	default:
		return tokens.Claims{}, &UnauthorizedError{Reason: ReasonInvalidToken, Err: err}
	}
}

// Handle runs next with the verified claims in its context, or renders the
// failure and returns without calling next.
func (g *Gate) Handle(
	w http.ResponseWriter,
	r *http.Request,
	next http.Handler,
) {
	claims, err := g.Authenticate(r)
	if err != nil {
		g.onError(w, r, err)
		return
	}
	next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
}

// Middleware adapts Handle to mux.MiddlewareFunc.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Handle(w, r, next)
	})
}

type claimsKey struct{}

func WithClaims(ctx context.Context, claims tokens.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (tokens.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(tokens.Claims)
	return claims, ok
}

func plainResponder(w http.ResponseWriter, r *http.Request, err error) {
	reason := ReasonInvalidToken
	var unauthorized *UnauthorizedError
	if errors.As(err, &unauthorized) {
		reason = unauthorized.Reason
	}
	http.Error(w, reason, http.StatusUnauthorized)
}
