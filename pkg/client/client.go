package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrRequest  = errors.New("request failed")
	ErrResponse = errors.New("invalid response")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
)

// APIError is an error envelope returned by the server.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("passgate: %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.StatusCode == http.StatusUnauthorized && e.Message == "invalid credentials"
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (h *Health) Healthy() bool { return h.Status == "healthy" }

type envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL, e.g.
// "https://auth.example.com".
func New(
	baseURL string,
	opts ...Option,
) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(
	ctx context.Context,
	email string,
	password string,
) (
	*Profile,
	error,
) {
	profile := new(Profile)
	err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{email, password}, "", profile)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) Login(
	ctx context.Context,
	email string,
	password string,
) (
	*Token,
	error,
) {
	token := new(Token)
	err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{email, password}, "", token)
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Profile reads the account the access token was issued to.
func (c *Client) Profile(
	ctx context.Context,
	token string,
) (
	*Profile,
	error,
) {
	profile := new(Profile)
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, token, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Health returns the server's health report. An unhealthy server is not an
// error; check Healthy on the result.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	health := new(Health)
	if err := json.NewDecoder(res.Body).Decode(health); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return health, nil
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	token string,
	out any,
) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequest, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}

	if res.StatusCode >= 300 || env.Status != "success" {
		return apiError(res, env)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return nil
}

func apiError(res *http.Response, env envelope) *APIError {
	apiErr := &APIError{StatusCode: res.StatusCode}
	if env.Message != nil {
		apiErr.Message = *env.Message
	}
	if seconds, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}
	return apiErr
}
