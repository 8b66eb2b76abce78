package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/leadgate/leadgate/internal/auth"
	"github.com/leadgate/leadgate/internal/platform/httpx"
)

// Handler exposes the mediated query operations over JSON. The caller is the
// agent/UI collaborator; it supplies the operation name and, for free-form
// operations, the untrusted text.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the gateway HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the query routes; they all require a session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.query)
}

type queryRequest struct {
	Operation string `json:"operation" validate:"required,oneof=statement my_leads team_leads describe"`
	Statement string `json:"statement"`
	Table     string `json:"table"`
}

type queryResponse struct {
	Result
	Rendered string `json:"rendered"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "a valid session is required")
		return
	}

	var req queryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "request body must be JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "operation must be one of statement, my_leads, team_leads, describe")
		return
	}

	var result Result
	switch req.Operation {
	case "statement":
		result = h.service.RunStatement(r.Context(), user, req.Statement)
	case "my_leads":
		result = h.service.MyLeads(r.Context(), user)
	case "team_leads":
		result = h.service.TeamLeads(r.Context(), user)
	case "describe":
		table := req.Table
		if table == "" {
			table = "leads"
		}
		result = h.service.DescribeTable(r.Context(), user, table)
	}

	httpx.JSON(w, http.StatusOK, queryResponse{Result: result, Rendered: result.Render()})
}
