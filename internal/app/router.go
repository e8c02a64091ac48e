package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/identity"
	"github.com/scholaris-edu/scholaris/internal/ipr"
	"github.com/scholaris-edu/scholaris/internal/modules"
	"github.com/scholaris-edu/scholaris/internal/patent"
	"github.com/scholaris-edu/scholaris/internal/observability"
	"github.com/scholaris-edu/scholaris/internal/research"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Identities     IdentityResolver

	AuthzMiddleware    authz.Middleware
	PermissionsHandler *authz.Handler
	IPRHandler         *ipr.Handler
	ResearchHandler    *research.Handler
	PatentHandler      *patent.Handler
	UsersHandler       *identity.Handler
	ModulesHandler     *modules.Handler
	AuditHandler       *audit.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Scholaris defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Identities:     params.Identities,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Filing surfaces are guarded by the route-permission map so that the
	// handlers never re-implement permission checks.
	if params.IPRHandler != nil {
		r.Route("/ipr", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Protect)
			params.IPRHandler.MountRoutes(r)
		})
	}
	if params.ResearchHandler != nil {
		r.Route("/research", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Protect)
			params.ResearchHandler.MountRoutes(r)
		})
	}

	if params.PatentHandler != nil {
		r.Route("/patents", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Protect)
			params.PatentHandler.MountRoutes(r)
		})
	}

	// Admin surfaces use explicit per-route capability requirements.
	r.Route("/admin", func(r chi.Router) {
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.RequireAny(authz.PermUsersView))
				params.UsersHandler.MountRoutes(r)
			})
		}
		if params.ModulesHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.RequireAny(authz.PermModulesManage))
				params.ModulesHandler.MountRoutes(r)
			})
		}
		if params.AuditHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.RequireAny(authz.PermAuditView))
				params.AuditHandler.MountRoutes(r)
			})
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
