package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

type countingRecorder struct {
	decisions map[string]int
}

func (c *countingRecorder) ObserveDecision(outcome, reason string) {
	if c.decisions == nil {
		c.decisions = make(map[string]int)
	}
	c.decisions[outcome+"/"+reason]++
}

func protectRequest(t *testing.T, grants stubGrants, identity *Identity, method, path string) (*httptest.ResponseRecorder, *countingRecorder) {
	t.Helper()
	routes, err := DefaultRouteMap(DefaultCatalog())
	require.NoError(t, err)
	metrics := &countingRecorder{}
	mw := Middleware{Engine: NewEngine(routes, grants), Metrics: metrics}

	req := httptest.NewRequest(method, path, nil)
	if identity != nil {
		req = req.WithContext(ContextWithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	mw.Protect(okHandler()).ServeHTTP(rec, req)
	return rec, metrics
}

func TestProtectRejectsAnonymous(t *testing.T) {
	rec, metrics := protectRequest(t, stubGrants{}, nil, http.MethodPost, "/ipr/applications")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, metrics.decisions["deny/unauthenticated"])
}

func TestProtectDeniesWithoutKey(t *testing.T) {
	identity := Identity{ID: 7, Role: RoleStaff}
	rec, metrics := protectRequest(t, stubGrants{}, &identity, http.MethodPost, "/ipr/applications")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusForbidden)+"\n", rec.Body.String(),
		"denial body must not name the missing key")
	assert.Equal(t, 1, metrics.decisions["deny/insufficient_permissions"])
}

func TestProtectAllowsWithDefault(t *testing.T) {
	identity := Identity{ID: 7, Role: RoleStudent}
	rec, metrics := protectRequest(t, stubGrants{}, &identity, http.MethodPost, "/ipr/applications")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, metrics.decisions["allow/granted"])
}

func TestProtectUnmatchedRoutePassesThrough(t *testing.T) {
	identity := Identity{ID: 7, Role: RoleStaff}
	rec, metrics := protectRequest(t, stubGrants{}, &identity, http.MethodGet, "/profile")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, metrics.decisions["allow/no_rule_match"])
}

func TestRequireAllDemandsEveryKey(t *testing.T) {
	routes, err := DefaultRouteMap(DefaultCatalog())
	require.NoError(t, err)
	grants := stubGrants{keys: map[int64][]string{
		1: {PermPatentView},
		2: {PermPatentView, PermPatentManage},
	}}
	mw := Middleware{Engine: NewEngine(routes, grants)}
	handler := mw.RequireAll(PermPatentView, PermPatentManage)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ID: 1, Role: RoleStaff}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ID: 2, Role: RoleStaff}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyPassesWithOneKey(t *testing.T) {
	routes, err := DefaultRouteMap(DefaultCatalog())
	require.NoError(t, err)
	grants := stubGrants{keys: map[int64][]string{1: {PermPermissionsView}}}
	mw := Middleware{Engine: NewEngine(routes, grants)}
	handler := mw.RequireAny(PermPermissionsView, PermPermissionsManage)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ID: 1, Role: RoleStaff}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "anonymous caller")
}
