package modules

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// RepositoryPort defines data access methods for modules.
type RepositoryPort interface {
	ListModules(ctx context.Context) ([]Module, error)
	SetActive(ctx context.Context, slug string, active bool) (bool, error)
}

// Handler manages the feature module registry. Permission gating is applied
// by the router.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers module routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/modules", h.listModules)
	r.Post("/modules/{slug}/activate", h.setActive(true))
	r.Post("/modules/{slug}/deactivate", h.setActive(false))
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	mods, err := h.repo.ListModules(r.Context())
	if err != nil {
		h.logger.Error("list modules", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(mods))
	for _, mod := range mods {
		out = append(out, map[string]any{
			"slug":          mod.Slug,
			"name":          mod.Name,
			"display_order": mod.DisplayOrder,
			"is_active":     mod.IsActive,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": out})
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		updated, err := h.repo.SetActive(r.Context(), slug, active)
		if err != nil {
			h.logger.Error("set module active", slog.String("slug", slug), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if !updated {
			httpx.RespondError(w, fmt.Errorf("%w: module %q", httpx.ErrNotFound, slug))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"slug": slug, "is_active": active})
	}
}
