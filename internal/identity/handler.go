package identity

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// Lister provides the user listing for the admin view.
type Lister interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Handler serves the admin user listing. Permission gating is applied by the
// router.
type Handler struct {
	logger *slog.Logger
	repo   Lister
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo Lister) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(users))
	for _, user := range users {
		out = append(out, map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"role":       user.Role,
			"is_active":  user.IsActive,
			"created_at": user.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}
