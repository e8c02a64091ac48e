package patent

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// RepositoryPort defines data access methods for registrations.
type RepositoryPort interface {
	Record(ctx context.Context, reg Registration) (Registration, error)
	List(ctx context.Context) ([]Registration, error)
}

// Handler serves the patent registry. Route protection comes from the
// route-permission map.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.record)
}

type recordRequest struct {
	ApplicationID  int64  `json:"application_id"`
	RegistryNumber string `json:"registry_number"`
	Jurisdiction   string `json:"jurisdiction"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	regs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list registrations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(regs))
	for _, reg := range regs {
		out = append(out, registrationJSON(reg))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"registrations": out})
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.ApplicationID <= 0 || req.RegistryNumber == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "application_id and registry_number required")
		return
	}
	reg, err := h.repo.Record(r.Context(), Registration{
		ApplicationID:  req.ApplicationID,
		RegistryNumber: req.RegistryNumber,
		Jurisdiction:   req.Jurisdiction,
		RegisteredBy:   actor.ID,
	})
	if err != nil {
		h.logger.Error("record registration", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, registrationJSON(reg))
}

func registrationJSON(reg Registration) map[string]any {
	return map[string]any{
		"id":              reg.ID,
		"application_id":  reg.ApplicationID,
		"registry_number": reg.RegistryNumber,
		"jurisdiction":    reg.Jurisdiction,
		"registered_by":   reg.RegisteredBy,
		"registered_at":   reg.RegisteredAt,
	}
}
