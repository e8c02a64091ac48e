package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// Enqueuer schedules a background export of the filtered audit window.
type Enqueuer interface {
	EnqueueExport(ctx context.Context, filters QueryFilters) (string, error)
}

// Handler serves the audit trail admin API. Route-level permission gating is
// applied by the router; this handler assumes an authorized caller.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer Enqueuer
	now      func() time.Time
}

// NewHandler builds a Handler instance. enqueuer may be nil when no worker
// broker is configured.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.query)
	r.Get("/audit/export.csv", h.exportCSV)
	r.Post("/audit/export", h.enqueueExport)
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Query(r.Context(), filters)
	if err != nil {
		h.logger.Error("query audit trail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	records := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, map[string]any{
			"id":            rec.ID,
			"occurred_at":   rec.At,
			"actor_id":      rec.ActorID,
			"action":        rec.Action,
			"target_id":     rec.TargetID,
			"affected_keys": rec.AffectedKeys,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"records": records,
		"paging": map[string]any{
			"page":      result.Paging.Page,
			"page_size": result.Paging.PageSize,
			"has_next":  result.Paging.HasNext,
		},
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	records, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit trail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload, err := WriteCSV(records)
	if err != nil {
		h.logger.Error("render audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("permission-audit-%s.csv", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) enqueueExport(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusNotImplemented, "Not Implemented", "background export is not configured")
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	taskID, err := h.enqueuer.EnqueueExport(r.Context(), filters)
	if err != nil {
		h.logger.Error("enqueue audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": taskID})
}

func (h *Handler) parseFilters(r *http.Request) (QueryFilters, error) {
	q := r.URL.Query()
	filters := QueryFilters{}
	var err error
	if filters.ActorID, err = parseID(q.Get("actor_id")); err != nil {
		return QueryFilters{}, fmt.Errorf("actor_id: %w", err)
	}
	if filters.TargetID, err = parseID(q.Get("target_id")); err != nil {
		return QueryFilters{}, fmt.Errorf("target_id: %w", err)
	}
	if filters.From, err = parseTime(q.Get("from")); err != nil {
		return QueryFilters{}, fmt.Errorf("from: %w", err)
	}
	if filters.To, err = parseTime(q.Get("to")); err != nil {
		return QueryFilters{}, fmt.Errorf("to: %w", err)
	}
	if raw := q.Get("page"); raw != "" {
		if filters.Page, err = strconv.Atoi(raw); err != nil {
			return QueryFilters{}, fmt.Errorf("page: %w", err)
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if filters.PageSize, err = strconv.Atoi(raw); err != nil {
			return QueryFilters{}, fmt.Errorf("page_size: %w", err)
		}
	}
	return filters, nil
}

func parseID(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
