package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leadgate/leadgate/internal/platform/httpx"
	"github.com/leadgate/leadgate/internal/shared"
)

// Handler exposes login/logout over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *SessionStore
	validate *validator.Validate
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *SessionStore) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		validate: validator.New(),
	}
}

// MountRoutes registers the auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "request body must be JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "username and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "login failed", "invalid username or password")
			return
		}
		h.logger.Error("authenticate", slog.String("username", req.Username), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "login failed", "could not authenticate")
		return
	}

	token, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.logger.Error("create session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "login failed", "could not create session")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := BearerToken(r)
	if token == "" {
		httpx.Problem(w, http.StatusUnauthorized, "logout failed", "missing session token")
		return
	}
	if err := h.sessions.Delete(r.Context(), token); err != nil {
		h.logger.Warn("delete session", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// BearerToken extracts the session token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
