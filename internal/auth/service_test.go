package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadgate/leadgate/internal/policy"
	"github.com/leadgate/leadgate/internal/shared"
)

type stubRepo struct {
	rec *Record
	err error
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService(&stubRepo{err: shared.ErrNotFound}, AcceptAll{})

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateRepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&stubRepo{err: boom}, AcceptAll{})

	_, err := svc.Authenticate(context.Background(), "sales", "whatever")
	assert.ErrorIs(t, err, boom)
}

func TestAuthenticateAcceptAll(t *testing.T) {
	svc := NewService(&stubRepo{rec: &Record{
		ID: 42, Username: "sales", Email: "sales@company.com", FullName: "Sales Rep", RoleName: "sales_rep",
	}}, AcceptAll{})

	user, err := svc.Authenticate(context.Background(), "sales", "anything at all")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, policy.RoleSalesRep, user.Role)
}

func TestAuthenticateBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{rec: &Record{
		ID: 1, Username: "admin", RoleName: "admin", PasswordHash: string(hash),
	}}
	svc := NewService(repo, Bcrypt{})

	user, err := svc.Authenticate(context.Background(), "admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, policy.RoleAdmin, user.Role)

	_, err = svc.Authenticate(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownRoleFailsHard(t *testing.T) {
	svc := NewService(&stubRepo{rec: &Record{
		ID: 9, Username: "odd", RoleName: "superuser",
	}}, AcceptAll{})

	_, err := svc.Authenticate(context.Background(), "odd", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
