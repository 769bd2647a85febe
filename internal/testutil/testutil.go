// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/api"
	"git.sr.ht/~jakintosh/passgate/internal/database"
	"git.sr.ht/~jakintosh/passgate/internal/limiter"
	"git.sr.ht/~jakintosh/passgate/internal/password"
	"git.sr.ht/~jakintosh/passgate/internal/service"
	"git.sr.ht/~jakintosh/passgate/pkg/tokens"
	"golang.org/x/crypto/bcrypt"
)

// Clock is a manually advanced clock shared by every component in a TestEnv.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB      *database.SQLiteStore
	Service *service.Service
	Router  http.Handler
	Issuer  *tokens.Issuer
	Limiter *limiter.Limiter
	Hasher  *password.Pool
	Clock   *Clock
	Secret  []byte
}

type envOptions struct {
	service   service.Options
	algorithm password.Algorithm
}

type Option func(*envOptions)

// KeepAttemptsOnSuccess makes successful logins count toward the attempt
// window instead of clearing it.
func KeepAttemptsOnSuccess() Option {
	return func(o *envOptions) { o.service.ResetOnSuccess = false }
}

// WithPasswordAlgorithm selects the scheme new hashes are written with.
func WithPasswordAlgorithm(alg password.Algorithm) Option {
	return func(o *envOptions) { o.algorithm = alg }
}

// FastArgon2Params are the cheapest argon2id parameters the hasher accepts.
func FastArgon2Params() password.Argon2Params {
	return password.Argon2Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
	opts ...Option,
) *TestEnv {
	t.Helper()

	options := envOptions{
		service:   service.DefaultOptions(),
		algorithm: password.AlgorithmBcrypt,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// create in-memory SQLite database
	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	clock := NewClock()

	// fresh secret per environment
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("failed to generate secret: %v", err)
	}
	issuer, err := tokens.NewIssuer(secret, tokens.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	// cheapest work factors; these hashes only need to be correct
	hasher, err := password.NewHasher(password.Config{
		Algorithm:  options.algorithm,
		BcryptCost: bcrypt.MinCost,
		Argon2:     FastArgon2Params(),
	})
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	pool := password.NewPool(hasher, 4)

	lim, err := limiter.New(limiter.DefaultConfig(), limiter.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	options.service.Now = clock.Now
	svc := service.New(db.IdentityStore(), pool, issuer, lim, options.service)

	return &TestEnv{
		DB:      db,
		Service: svc,
		Issuer:  issuer,
		Limiter: lim,
		Hasher:  pool,
		Clock:   clock,
		Secret:  secret,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
	opts ...Option,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t, opts...)
	env.Router = api.New(env.Service, env.Issuer).Router()
	return env
}

// RegisterTestUser creates a test user in the database
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	email string,
	password string,
) *service.Profile {
	t.Helper()
	profile, err := env.Service.Register(context.Background(), email, password)
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	return profile
}

// IssueTestAccessToken creates an access token for testing
func (env *TestEnv) IssueTestAccessToken(
	t *testing.T,
	subject string,
) *tokens.AccessToken {
	t.Helper()
	token, err := env.Issuer.Issue(subject)
	if err != nil {
		t.Fatalf("failed to issue test access token: %v", err)
	}
	return token
}
