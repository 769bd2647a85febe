package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/limiter"
	"git.sr.ht/~jakintosh/passgate/internal/password"
	"git.sr.ht/~jakintosh/passgate/internal/service"
	"git.sr.ht/~jakintosh/passgate/internal/testutil"
	"golang.org/x/crypto/bcrypt"
)

// countingHasher records how often the wrapped hasher does real work.
type countingHasher struct {
	service.PasswordHasher
	hashCalls   atomic.Int32
	verifyCalls atomic.Int32
}

func (h *countingHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	h.hashCalls.Add(1)
	return h.PasswordHasher.Hash(ctx, plaintext)
}

func (h *countingHasher) Verify(ctx context.Context, plaintext string, encoded string) (bool, error) {
	h.verifyCalls.Add(1)
	return h.PasswordHasher.Verify(ctx, plaintext, encoded)
}

func (h *countingHasher) hashes() int   { return int(h.hashCalls.Load()) }
func (h *countingHasher) verifies() int { return int(h.verifyCalls.Load()) }

// emptyStore knows no identities and ignores its context.
type emptyStore struct{}

func (emptyStore) InsertIdentity(context.Context, *service.Identity) error { return nil }
func (emptyStore) GetIdentity(context.Context, string) (*service.Identity, error) {
	return nil, service.ErrAccountNotFound
}
func (emptyStore) UpdateSecret(context.Context, string, []byte, time.Time) error { return nil }
func (emptyStore) Ping(context.Context) error                                    { return nil }

// failOnceHasher fails its first Hash call.
type failOnceHasher struct {
	*countingHasher
	failed atomic.Bool
}

func (h *failOnceHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if h.failed.CompareAndSwap(false, true) {
		return "", errors.New("hasher unavailable")
	}
	return h.countingHasher.Hash(ctx, plaintext)
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	// valid login returns a token for the normalized email
	token, err := env.Service.Login(context.Background(), "a@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.Subject() != "a@example.com" {
		t.Errorf("subject = %s, want a@example.com", token.Subject())
	}

	// token verifies with the same issuer
	verified, err := env.Issuer.Verify(token.Encoded())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.Subject() != "a@example.com" {
		t.Errorf("verified subject = %s, want a@example.com", verified.Subject())
	}
}

func TestLogin_CaseInsensitive(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	token, err := env.Service.Login(context.Background(), " A@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.Subject() != "a@example.com" {
		t.Errorf("subject = %s, want a@example.com", token.Subject())
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	_, err := env.Service.Login(context.Background(), "a@example.com", "wrong")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUserIndistinguishable(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	_, wrongPassword := env.Service.Login(context.Background(), "a@example.com", "wrong")
	_, unknownUser := env.Service.Login(context.Background(), "ghost@example.com", "secret123")

	if !errors.Is(unknownUser, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownUser)
	}
}

func TestLogin_UnknownUserStillVerifies(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// unknown users cost a verify like known ones
	hasher := &countingHasher{PasswordHasher: env.Hasher}
	svc := service.New(env.DB.IdentityStore(), hasher, env.Issuer, env.Limiter, service.DefaultOptions())

	_, err := svc.Login(context.Background(), "ghost@example.com", "secret123")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if hasher.verifies() != 1 {
		t.Errorf("verify calls = %d, want 1", hasher.verifies())
	}
}

func TestLogin_RateLimitedSkipsHasher(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")
	hasher := &countingHasher{PasswordHasher: env.Hasher}
	svc := service.New(env.DB.IdentityStore(), hasher, env.Issuer, env.Limiter, service.DefaultOptions())

	// use up the window with wrong passwords
	for i := range limiter.DefaultMaxAttempts {
		_, err := svc.Login(context.Background(), "a@example.com", "wrong")
		if !errors.Is(err, service.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	before := hasher.verifies()

	// even the correct password is refused without verifying
	_, err := svc.Login(context.Background(), "a@example.com", "secret123")
	var limited *limiter.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if limited.RetryAfterSeconds() != 300 {
		t.Errorf("retry after = %d, want 300", limited.RetryAfterSeconds())
	}
	if hasher.verifies() != before {
		t.Errorf("verify calls grew from %d to %d while limited", before, hasher.verifies())
	}
}

func TestLogin_RateLimitIsPerNormalizedEmail(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")
	env.RegisterTestUser(t, "b@example.com", "secret123")

	// case variants share a window
	variants := []string{"a@example.com", "A@example.com", "a@EXAMPLE.com", " a@example.com", "A@EXAMPLE.COM"}
	for _, v := range variants {
		_, _ = env.Service.Login(context.Background(), v, "wrong")
	}
	_, err := env.Service.Login(context.Background(), "a@example.com", "secret123")
	if !errors.Is(err, limiter.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// other accounts are unaffected
	if _, err := env.Service.Login(context.Background(), "b@example.com", "secret123"); err != nil {
		t.Errorf("b login failed: %v", err)
	}
}

func TestLogin_WindowDecays(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")
	for range limiter.DefaultMaxAttempts {
		_, _ = env.Service.Login(context.Background(), "a@example.com", "wrong")
	}
	_, err := env.Service.Login(context.Background(), "a@example.com", "secret123")
	if !errors.Is(err, limiter.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// once the window passes the account opens again
	env.Clock.Advance(limiter.DefaultWindow + time.Second)
	if _, err := env.Service.Login(context.Background(), "a@example.com", "secret123"); err != nil {
		t.Errorf("login after window failed: %v", err)
	}
}

func TestLogin_ResetOnSuccess(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	// four failures then a success clears the window
	for range limiter.DefaultMaxAttempts - 1 {
		_, _ = env.Service.Login(context.Background(), "a@example.com", "wrong")
	}
	if _, err := env.Service.Login(context.Background(), "a@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// a full window of failures is available again
	for i := range limiter.DefaultMaxAttempts {
		_, err := env.Service.Login(context.Background(), "a@example.com", "wrong")
		if !errors.Is(err, service.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
}

func TestLogin_SuccessesCountWhenKept(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t, testutil.KeepAttemptsOnSuccess())

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	// five correct logins inside the window yield five distinct tokens
	seen := make(map[string]bool)
	for i := range limiter.DefaultMaxAttempts {
		token, err := env.Service.Login(context.Background(), "a@example.com", "secret123")
		if err != nil {
			t.Fatalf("login %d failed: %v", i+1, err)
		}
		if seen[token.Encoded()] {
			t.Fatalf("login %d returned a repeated token", i+1)
		}
		seen[token.Encoded()] = true
		env.Clock.Advance(time.Second)
	}

	// the sixth is throttled
	_, err := env.Service.Login(context.Background(), "a@example.com", "secret123")
	var limited *limiter.RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if !strings.Contains(err.Error(), "300 seconds") {
		t.Errorf("error = %q, want retry hint of 300 seconds", err)
	}
}

func TestLogin_ConcurrentAttempts(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	const n = 20
	var (
		wg      sync.WaitGroup
		invalid atomic.Int32
		limited atomic.Int32
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Service.Login(context.Background(), "a@example.com", "wrong")
			switch {
			case errors.Is(err, service.ErrInvalidCredentials):
				invalid.Add(1)
			case errors.Is(err, limiter.ErrRateLimited):
				limited.Add(1)
			default:
				t.Errorf("unexpected result: %v", err)
			}
		}()
	}
	wg.Wait()

	if invalid.Load() != limiter.DefaultMaxAttempts {
		t.Errorf("invalid credentials = %d, want %d", invalid.Load(), limiter.DefaultMaxAttempts)
	}
	if limited.Load() != n-limiter.DefaultMaxAttempts {
		t.Errorf("rate limited = %d, want %d", limited.Load(), n-limiter.DefaultMaxAttempts)
	}
}

func TestLogin_UpgradesWeakHash(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t, testutil.WithPasswordAlgorithm(password.AlgorithmArgon2id))
	ctx := context.Background()

	// setup env: store a bcrypt hash under an argon2id hasher
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	profile := env.RegisterTestUser(t, "a@example.com", "placeholder")
	if err := env.DB.UpdateSecret(ctx, "a@example.com", legacy, env.Clock.Now()); err != nil {
		t.Fatalf("UpdateSecret failed: %v", err)
	}

	// login succeeds against the legacy hash
	env.Clock.Advance(time.Minute)
	if _, err := env.Service.Login(ctx, "a@example.com", "secret123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// and rewrites it with the configured scheme
	identity, err := env.DB.GetIdentity(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if !strings.HasPrefix(string(identity.Secret), "$argon2id$") {
		t.Errorf("secret not upgraded: %s", identity.Secret)
	}
	if !identity.UpdatedAt.After(profile.CreatedAt) {
		t.Errorf("updated_at %v not after created_at %v", identity.UpdatedAt, profile.CreatedAt)
	}

	// the upgraded hash still verifies
	if _, err := env.Service.Login(ctx, "a@example.com", "secret123"); err != nil {
		t.Errorf("Login after upgrade failed: %v", err)
	}
}

func TestLogin_CanceledContext(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, err := env.Service.Login(ctx, "a@example.com", "secret123")
	if err == nil {
		t.Fatalf("expected error, got token for %s", token.Subject())
	}
	if errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("canceled login reported as invalid credentials")
	}
}

func TestLogin_UnknownUserAfterCanceledRequest(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	hasher := &countingHasher{PasswordHasher: env.Hasher}
	svc := service.New(emptyStore{}, hasher, env.Issuer, env.Limiter, service.DefaultOptions())

	// first unknown-user login arrives on a dead request
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = svc.Login(ctx, "ghost@example.com", "secret123")

	// a live request still pays for a verify
	before := hasher.verifies()
	_, err := svc.Login(context.Background(), "other@example.com", "secret123")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := hasher.verifies() - before; got != 1 {
		t.Errorf("verify calls = %d, want 1", got)
	}
	if hasher.hashes() != 1 {
		t.Errorf("hash calls = %d, want 1", hasher.hashes())
	}
}

func TestLogin_DummyHashRetriedAfterFailure(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	hasher := &failOnceHasher{countingHasher: &countingHasher{PasswordHasher: env.Hasher}}
	svc := service.New(emptyStore{}, hasher, env.Issuer, env.Limiter, service.DefaultOptions())

	// first attempt cannot build the dummy hash
	_, _ = svc.Login(context.Background(), "ghost@example.com", "secret123")

	// the next one builds it and verifies against it
	before := hasher.verifies()
	_, err := svc.Login(context.Background(), "other@example.com", "secret123")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := hasher.verifies() - before; got != 1 {
		t.Errorf("verify calls = %d, want 1", got)
	}
}
