package service

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Identity is a stored account. Secret is the encoded password hash and
// never leaves this package's callers.
type Identity struct {
	ID        uuid.UUID
	Handle    string
	Secret    []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the public projection of an Identity.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (i *Identity) Profile() *Profile {
	return &Profile{
		ID:        i.ID,
		Email:     i.Handle,
		CreatedAt: i.CreatedAt,
	}
}

// NormalizeHandle folds an identifier to the form used as both the store key
// and the rate limiter key.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

func validateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidHandle)
	}
	addr, err := mail.ParseAddress(handle)
	if err != nil || addr.Address != handle || addr.Name != "" {
		return fmt.Errorf("%w: %q is not an email address", ErrInvalidHandle, handle)
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, MinPasswordLength)
	case len(password) > MaxPasswordLength:
		return fmt.Errorf("%w: must be at most %d bytes", ErrInvalidPassword, MaxPasswordLength)
	}
	return nil
}
