package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/leadgate/leadgate/internal/shared"
)

// Verifier checks a presented password against a stored hash. It is the
// substitution point for real credential verification; the service never
// inspects passwords itself.
type Verifier interface {
	Verify(password, hash string) error
}

// AcceptAll accepts any password. This mirrors the demo behavior of the
// system this service fronts and must never be wired in production.
type AcceptAll struct{}

// Verify always succeeds.
func (AcceptAll) Verify(password, hash string) error {
	return nil
}

// Bcrypt verifies against a bcrypt hash.
type Bcrypt struct{}

// Verify compares the password with the stored bcrypt hash.
func (Bcrypt) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return shared.ErrInvalidCredentials
	}
	return nil
}

var (
	_ Verifier = AcceptAll{}
	_ Verifier = Bcrypt{}
)
