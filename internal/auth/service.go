package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadgate/leadgate/internal/policy"
	"github.com/leadgate/leadgate/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	verifier Verifier
}

// NewService constructs a new Service with the given credential verifier.
func NewService(repo Repository, verifier Verifier) *Service {
	return &Service{repo: repo, verifier: verifier}
}

// Authenticate resolves username/password into a User. A stored role outside
// the closed enum is a configuration error and fails the login hard: the
// dangerous direction would be admitting a user whose restrictions cannot be
// computed.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	rec, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.verifier.Verify(password, rec.PasswordHash); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	role, err := policy.ParseRole(rec.RoleName)
	if err != nil {
		return nil, fmt.Errorf("auth: user %q has unrecognised role: %w", username, err)
	}
	return &User{
		ID:       rec.ID,
		Username: rec.Username,
		Email:    rec.Email,
		FullName: rec.FullName,
		Role:     role,
	}, nil
}
