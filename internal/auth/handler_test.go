package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/shared"
)

func newAuthRouter(t *testing.T, repo Repository) (chi.Router, *SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := NewSessionStore(client, time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo, AcceptAll{}), sessions)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, sessions
}

func TestLoginIssuesToken(t *testing.T) {
	router, sessions := newAuthRouter(t, &stubRepo{rec: &Record{
		ID: 42, Username: "sales", Email: "sales@company.com", FullName: "Sales Rep", RoleName: "sales_rep",
	}})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"sales","password":"demo"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	assert.Equal(t, "sales", body.User.Username)

	user, err := sessions.Get(req.Context(), body.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{err: shared.ErrNotFound})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ghost","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutDeletesSession(t *testing.T) {
	router, sessions := newAuthRouter(t, &stubRepo{rec: &Record{
		ID: 1, Username: "admin", RoleName: "admin",
	}})

	token, err := sessions.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(), &User{ID: 1, Username: "admin", Role: "admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	_, err = sessions.Get(req.Context(), token)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", BearerToken(req))

	req.Header.Set("Authorization", "bearer abc123")
	assert.Equal(t, "abc123", BearerToken(req))

	req.Header.Set("Authorization", "Basic abc123")
	assert.Empty(t, BearerToken(req))
}
