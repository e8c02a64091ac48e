package authz

import (
	"log/slog"
	"net/http"
)

// DecisionRecorder counts authorization outcomes for observability.
type DecisionRecorder interface {
	ObserveDecision(outcome, reason string)
}

// Middleware wires authorization enforcement into HTTP handlers. It expects
// the authentication collaborator to have attached an Identity to the request
// context; requests without one are rejected as unauthenticated.
type Middleware struct {
	Engine  *Engine
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// Protect enforces the route-permission map for every request passing
// through. Requests whose method+path match no rule pass through unchanged;
// the map is additive protection for known-sensitive routes, not a
// default-deny firewall.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			m.deny(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		decision, err := m.Engine.Authorize(r.Context(), identity, r.Method, r.URL.Path)
		if err != nil {
			m.logError("authorize route", r, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		m.observe(decision)
		if !decision.Allowed {
			m.deny(w, http.StatusForbidden, string(decision.Reason))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current identity holds at least one of the keys.
func (m Middleware) RequireAny(keys ...string) func(http.Handler) http.Handler {
	return m.require(keys, PolicyAny)
}

// RequireAll ensures the current identity holds every one of the keys.
func (m Middleware) RequireAll(keys ...string) func(http.Handler) http.Handler {
	return m.require(keys, PolicyAll)
}

func (m Middleware) require(keys []string, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				m.deny(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			decision, err := m.Engine.AuthorizeExplicit(r.Context(), identity, keys, policy)
			if err != nil {
				m.logError("authorize explicit", r, err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			m.observe(decision)
			if !decision.Allowed {
				m.deny(w, http.StatusForbidden, string(decision.Reason))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deny responds with the bare status text. The reason stays out of the body
// so probing cannot enumerate missing permission keys; it is recorded in
// metrics only.
func (m Middleware) deny(w http.ResponseWriter, status int, reason string) {
	if m.Metrics != nil && status == http.StatusUnauthorized {
		m.Metrics.ObserveDecision("deny", "unauthenticated")
	}
	http.Error(w, http.StatusText(status), status)
}

func (m Middleware) observe(decision Decision) {
	if m.Metrics == nil {
		return
	}
	outcome := "deny"
	if decision.Allowed {
		outcome = "allow"
	}
	m.Metrics.ObserveDecision(outcome, string(decision.Reason))
}

func (m Middleware) logError(msg string, r *http.Request, err error) {
	if m.Logger == nil {
		return
	}
	m.Logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
}
