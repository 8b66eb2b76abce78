package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadgate/leadgate/internal/auth"
	"github.com/leadgate/leadgate/internal/platform/httpx"
	"github.com/leadgate/leadgate/internal/policy"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	logger   *slog.Logger
	recorder Recorder
}

// NewHandler constructs the audit HTTP handler.
func NewHandler(logger *slog.Logger, recorder Recorder) *Handler {
	return &Handler{logger: logger, recorder: recorder}
}

// MountRoutes registers the audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/recent", h.recent)
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "a valid session is required")
		return
	}
	if user.Role != policy.RoleAdmin {
		httpx.Problem(w, http.StatusForbidden, "forbidden", "the audit trail is restricted to administrators")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			httpx.Problem(w, http.StatusBadRequest, "invalid request", "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	decisions, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("audit recent", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "audit unavailable", "could not read the audit trail")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}
