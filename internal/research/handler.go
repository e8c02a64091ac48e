package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// RepositoryPort defines data access methods for submissions.
type RepositoryPort interface {
	CreateSubmission(ctx context.Context, authorID int64, title, venue string) (Submission, error)
	ListSubmissions(ctx context.Context) ([]Submission, error)
	SetStatus(ctx context.Context, id int64, to Status, reviewerID int64) (bool, error)
}

// Handler serves the research contribution endpoints. Route protection comes
// from the route-permission map.
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

// MountRoutes registers submission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/submissions", h.submit)
	r.Get("/submissions", h.list)
	r.Post("/submissions/{id}/review", h.setStatus(StatusUnderReview))
	r.Post("/submissions/{id}/approve", h.setStatus(StatusApproved))
}

type submitRequest struct {
	Title string `json:"title"`
	Venue string `json:"venue"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Title == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "title required")
		return
	}
	sub, err := h.repo.CreateSubmission(r.Context(), actor.ID, req.Title, req.Venue)
	if err != nil {
		h.logger.Error("create submission", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, submissionJSON(sub))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	subs, err := h.repo.ListSubmissions(r.Context())
	if err != nil {
		h.logger.Error("list submissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(subs))
	for _, sub := range subs {
		out = append(out, submissionJSON(sub))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"submissions": out})
}

func (h *Handler) setStatus(to Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := authz.IdentityFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "submission id")
			return
		}
		updated, err := h.repo.SetStatus(r.Context(), id, to, actor.ID)
		if err != nil {
			h.logger.Error("set submission status", slog.Int64("id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if !updated {
			httpx.RespondError(w, fmt.Errorf("%w: submission %d", httpx.ErrNotFound, id))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "status": to})
	}
}

func submissionJSON(sub Submission) map[string]any {
	return map[string]any{
		"id":         sub.ID,
		"author_id":  sub.AuthorID,
		"title":      sub.Title,
		"venue":      sub.Venue,
		"status":     sub.Status,
		"created_at": sub.CreatedAt,
		"updated_at": sub.UpdatedAt,
	}
}
