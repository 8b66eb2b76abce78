package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadgate/leadgate/internal/auth"
	"github.com/leadgate/leadgate/internal/policy"
)

func newAuditRouter(t *testing.T, recorder Recorder) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, recorder)
	r := chi.NewRouter()
	r.Route("/audit", handler.MountRoutes)
	return r
}

func asUser(req *http.Request, role policy.Role) *http.Request {
	user := &auth.User{ID: 1, Username: "someone", Role: role}
	return req.WithContext(auth.ContextWithUser(req.Context(), user))
}

func TestRecentRequiresAdmin(t *testing.T) {
	router := newAuditRouter(t, NewMemoryRecorder(0))

	req := httptest.NewRequest(http.MethodGet, "/audit/recent", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req = asUser(httptest.NewRequest(http.MethodGet, "/audit/recent", nil), policy.RoleManager)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRecentReturnsDecisions(t *testing.T) {
	recorder := NewMemoryRecorder(0)
	require.NoError(t, recorder.Record(context.Background(), Decision{
		UserID: 42, Action: "query", Entity: "leads", Outcome: OutcomeBlocked,
	}))
	router := newAuditRouter(t, recorder)

	req := asUser(httptest.NewRequest(http.MethodGet, "/audit/recent?limit=5", nil), policy.RoleAdmin)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Decisions []Decision `json:"decisions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Decisions, 1)
	assert.Equal(t, OutcomeBlocked, body.Decisions[0].Outcome)
}

func TestRecentLimitValidation(t *testing.T) {
	router := newAuditRouter(t, NewMemoryRecorder(0))

	for _, limit := range []string{"0", "-1", "201", "abc"} {
		req := asUser(httptest.NewRequest(http.MethodGet, "/audit/recent?limit="+limit, nil), policy.RoleAdmin)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusBadRequest, res.Code, "limit %q", limit)
	}
}
