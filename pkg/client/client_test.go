package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/testutil"
	"git.sr.ht/~jakintosh/passgate/pkg/client"
)

func setupClient(t *testing.T) (*testutil.TestEnv, *client.Client) {
	t.Helper()
	env := testutil.SetupTestEnvWithRouter(t)
	server := httptest.NewServer(env.Router)
	t.Cleanup(server.Close)
	return env, client.New(server.URL+"/", client.WithHTTPClient(server.Client()))
}

func TestClient_RegisterLoginProfile(t *testing.T) {
	t.Parallel()
	_, c := setupClient(t)
	ctx := context.Background()

	registered, err := c.Register(ctx, "a@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if registered.Email != "a@example.com" || registered.ID == "" {
		t.Errorf("registered = %+v", registered)
	}

	token, err := c.Login(ctx, "a@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token.TokenType != "Bearer" || token.Token == "" {
		t.Errorf("token = %+v", token)
	}

	profile, err := c.Profile(ctx, token.Token)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.ID != registered.ID {
		t.Errorf("profile id = %s, want %s", profile.ID, registered.ID)
	}
}

func TestClient_InvalidCredentials(t *testing.T) {
	t.Parallel()
	env, c := setupClient(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	_, err := c.Login(context.Background(), "a@example.com", "wrong-password")
	if !errors.Is(err, client.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if errors.Is(err, client.ErrRateLimited) {
		t.Error("invalid credentials matched ErrRateLimited")
	}
}

func TestClient_RateLimited(t *testing.T) {
	t.Parallel()
	env, c := setupClient(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")
	for range 5 {
		_, _ = c.Login(context.Background(), "a@example.com", "wrong-password")
	}

	_, err := c.Login(context.Background(), "a@example.com", "secret123")
	if !errors.Is(err, client.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.RetryAfter != 300*time.Second {
		t.Errorf("retry after = %v, want 5m", apiErr.RetryAfter)
	}
}

func TestClient_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	env, c := setupClient(t)

	// setup env
	env.RegisterTestUser(t, "a@example.com", "secret123")

	_, err := c.Register(context.Background(), "a@example.com", "secret123")
	if !errors.Is(err, client.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_ProfileUnauthorized(t *testing.T) {
	t.Parallel()
	_, c := setupClient(t)

	_, err := c.Profile(context.Background(), "garbage")
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if errors.Is(err, client.ErrInvalidCredentials) {
		t.Error("bad token matched ErrInvalidCredentials")
	}
}

func TestClient_Health(t *testing.T) {
	t.Parallel()
	env, c := setupClient(t)

	health, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !health.Healthy() {
		t.Errorf("status = %s, want healthy", health.Status)
	}

	// an unhealthy report is data, not an error
	_ = env.DB.Close()
	health, err = c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Healthy() || health.Components["database"] != "down" {
		t.Errorf("health = %+v, want database down", health)
	}
}

func TestClient_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nil)
	url := server.URL
	server.Close()

	_, err := client.New(url).Login(context.Background(), "a@example.com", "secret123")
	if !errors.Is(err, client.ErrRequest) {
		t.Errorf("expected ErrRequest, got %v", err)
	}
}
