package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// IdentityDirectory resolves platform identities for admin operations.
type IdentityDirectory interface {
	Get(ctx context.Context, id int64) (Identity, error)
}

// Handler serves the administrative permissions API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *Catalog
	directory IdentityDirectory
	validate  *validator.Validate
	mw        Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, catalog *Catalog, directory IdentityDirectory, mw Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		catalog:   catalog,
		directory: directory,
		validate:  validator.New(),
		mw:        mw,
	}
}

// MountRoutes registers the admin permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPermissionsView, PermPermissionsManage))
		r.Get("/permissions/catalog", h.listCatalog)
		r.Get("/identities/{id}/permissions", h.getIdentityPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAny(PermPermissionsManage))
		r.Post("/identities/{id}/permissions/grant", h.grant)
		r.Post("/identities/{id}/permissions/revoke", h.revoke)
		r.Put("/identities/{id}/permissions", h.replace)
	})
}

type mutationRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,dive,required"`
}

type replaceRequest struct {
	Keys []string `json:"keys" validate:"dive,required"`
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": h.catalog.Categories()})
}

func (h *Handler) getIdentityPermissions(w http.ResponseWriter, r *http.Request) {
	target, err := h.targetIdentity(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	perms, err := h.service.Permissions(r.Context(), target)
	if err != nil {
		h.logger.Error("load identity permissions", slog.Int64("target_id", target.ID), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	granted := make([]map[string]any, 0, len(perms.Granted))
	for _, g := range perms.Granted {
		granted = append(granted, map[string]any{
			"key":        g.Key,
			"granted_by": g.GrantedBy,
			"granted_at": g.GrantedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"identity_id": perms.Identity.ID,
		"role":        perms.Identity.Role,
		"defaults":    emptyIfNil(perms.Defaults),
		"granted":     granted,
		"effective":   emptyIfNil(perms.Effective),
	})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	actor, target, keys, err := h.decodeMutation(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.service.Grant(r.Context(), actor, target, keys)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"granted_keys": result.AffectedKeys})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actor, target, keys, err := h.decodeMutation(r, false)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.service.Revoke(r.Context(), actor, target, keys)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked_keys": result.AffectedKeys})
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	actor, target, keys, err := h.decodeMutation(r, true)
	if err != nil {
		h.respondError(w, err)
		return
	}
	result, err := h.service.Replace(r.Context(), actor, target, keys)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"count": result.Count})
}

func (h *Handler) decodeMutation(r *http.Request, allowEmpty bool) (Identity, int64, []string, error) {
	actor, ok := IdentityFromContext(r.Context())
	if !ok {
		return Identity{}, 0, nil, ErrUnauthenticated
	}
	target, err := h.targetID(r)
	if err != nil {
		return Identity{}, 0, nil, err
	}
	var keys []string
	if allowEmpty {
		var req replaceRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return Identity{}, 0, nil, fmt.Errorf("%w: malformed body", ErrInvalidArgument)
		}
		if err := h.validate.Struct(req); err != nil {
			return Identity{}, 0, nil, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
		}
		keys = req.Keys
	} else {
		var req mutationRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return Identity{}, 0, nil, fmt.Errorf("%w: malformed body", ErrInvalidArgument)
		}
		if err := h.validate.Struct(req); err != nil {
			return Identity{}, 0, nil, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
		}
		keys = req.Keys
	}
	return actor, target, keys, nil
}

func (h *Handler) targetID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: identity id %q", ErrInvalidArgument, raw)
	}
	return id, nil
}

func (h *Handler) targetIdentity(r *http.Request) (Identity, error) {
	id, err := h.targetID(r)
	if err != nil {
		return Identity{}, err
	}
	return h.directory.Get(r.Context(), id)
}

// respondError translates the authorization error taxonomy into RFC7807
// problems. Denial detail stays generic so probing cannot enumerate which
// permission key was missing.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
	case errors.Is(err, ErrInvalidKey), errors.Is(err, ErrInvalidArgument):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "a competing mutation was detected, retry the request")
	case errors.Is(err, httpx.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func emptyIfNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
