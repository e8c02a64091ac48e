package ipr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// Handler serves the IPR filing endpoints. All routes here are protected by
// the route-permission map; the handler itself performs no permission checks.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers filing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/applications", h.file)
	r.Get("/applications", h.list)
	r.Post("/applications/{id}/review", h.review)
	r.Post("/applications/{id}/approve", h.approve)
}

type fileRequest struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

type reviewRequest struct {
	Reject bool   `json:"reject"`
	Note   string `json:"note"`
}

func (h *Handler) file(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req fileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	app, err := h.service.File(r.Context(), actor.ID, req.Title, req.Abstract)
	if err != nil {
		h.logger.Error("file application", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, applicationJSON(app))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	apps, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list applications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(apps))
	for _, app := range apps {
		out = append(out, applicationJSON(app))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"applications": out})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, actor authz.Identity, req reviewRequest) (Application, error) {
		return h.service.Review(r.Context(), id, actor.ID, req.Reject, req.Note)
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(id int64, actor authz.Identity, req reviewRequest) (Application, error) {
		return h.service.Approve(r.Context(), id, actor.ID, req.Note)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(int64, authz.Identity, reviewRequest) (Application, error)) {
	actor, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "application id")
		return
	}
	var req reviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	app, err := fn(id, actor, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.RespondError(w, fmt.Errorf("%w: application %d", httpx.ErrNotFound, id))
		case errors.Is(err, ErrBadTransition):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("transition application", slog.Int64("id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, applicationJSON(app))
}

func applicationJSON(app Application) map[string]any {
	return map[string]any{
		"id":           app.ID,
		"applicant_id": app.ApplicantID,
		"title":        app.Title,
		"status":       app.Status,
		"created_at":   app.CreatedAt,
		"updated_at":   app.UpdatedAt,
	}
}
