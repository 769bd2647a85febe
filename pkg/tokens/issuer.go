package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer signs and verifies access tokens with a single HMAC secret. It is
// immutable after NewIssuer and safe for concurrent use.
type Issuer struct {
	secret       []byte
	issuerDomain string
	now          func() time.Time
	parser       *jwt.Parser
}

type Option func(*Issuer)

// WithClock replaces time.Now, mostly for tests that need to step past
// the token lifetime.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithIssuerDomain stamps tokens with an "iss" claim and refuses tokens
// carrying any other issuer.
func WithIssuerDomain(domain string) Option {
	return func(i *Issuer) { i.issuerDomain = domain }
}

func NewIssuer(
	secret []byte,
	opts ...Option,
) (
	*Issuer,
	error,
) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrSigningFailure)
	}

	issuer := &Issuer{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			// expiry and required claims are checked by AccessTokenClaims.validate
			// against the issuer clock
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

func (i *Issuer) Issue(
	subject string,
) (
	*AccessToken,
	error,
) {
	now := i.now()
	token := &AccessToken{
		issuer:     i.issuerDomain,
		issuedAt:   now,
		expiration: now.Add(Lifetime),
		subject:    subject,
		id:         uuid.NewString(),
	}

	claims := token.intoClaims()
	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailure, err)
	}

	// report the second-precision times that actually went on the wire
	token.fromClaims(claims, encoded)
	return token, nil
}

func (i *Issuer) Verify(
	encoded string,
) (
	*AccessToken,
	error,
) {
	claims := &AccessTokenClaims{}
	_, err := i.parser.ParseWithClaims(encoded, claims, i.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, invalid(errTokenMalformed, err.Error())
		}
		return nil, invalid(errTokenBadSignature, err.Error())
	}

	if err := claims.validate(i); err != nil {
		return nil, err
	}

	token := &AccessToken{}
	token.fromClaims(claims, encoded)
	return token, nil
}

func (i *Issuer) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return i.secret, nil
}
