package authz

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGrants struct {
	keys map[int64][]string
	err  error
}

func (s stubGrants) KeysFor(_ context.Context, identityID int64) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.keys[identityID], nil
}

func newTestEngine(t *testing.T, grants stubGrants) *Engine {
	t.Helper()
	routes, err := DefaultRouteMap(DefaultCatalog())
	require.NoError(t, err)
	return NewEngine(routes, grants)
}

func TestAuthorizeUnmatchedRoutePassesThrough(t *testing.T) {
	engine := newTestEngine(t, stubGrants{})

	decision, err := engine.Authorize(context.Background(), Identity{ID: 1, Role: RoleStaff}, http.MethodGet, "/profile")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonNoRuleMatch, decision.Reason)
}

func TestAuthorizeRoleDefaultSatisfiesFilingRoute(t *testing.T) {
	engine := newTestEngine(t, stubGrants{})

	decision, err := engine.Authorize(context.Background(), Identity{ID: 1, Role: RoleStudent}, http.MethodPost, "/ipr/applications")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, ReasonGranted, decision.Reason)
}

// An admin holds no operational defaults, so without a stored grant the filing
// route denies even for the most privileged role.
func TestAuthorizeAdminWithoutGrantsDenied(t *testing.T) {
	engine := newTestEngine(t, stubGrants{})

	decision, err := engine.Authorize(context.Background(), Identity{ID: 9, Role: RoleAdmin}, http.MethodPost, "/ipr/applications")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficient, decision.Reason)
}

func TestAuthorizeStoredGrantSatisfiesReviewRoute(t *testing.T) {
	engine := newTestEngine(t, stubGrants{keys: map[int64][]string{
		7: {PermIPRReview},
	}})

	decision, err := engine.Authorize(context.Background(), Identity{ID: 7, Role: RoleStaff}, http.MethodPost, "/ipr/applications/3/review")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.Authorize(context.Background(), Identity{ID: 7, Role: RoleStaff}, http.MethodPost, "/ipr/applications/3/approve")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonInsufficient, decision.Reason)
}

func TestAuthorizeExplicitPolicies(t *testing.T) {
	engine := newTestEngine(t, stubGrants{keys: map[int64][]string{
		1: {"patent_view", "audit_view"},
	}})
	identity := Identity{ID: 1, Role: RoleStaff}

	decision, err := engine.AuthorizeExplicit(context.Background(), identity, []string{"patent_view", "users_view"}, PolicyAny)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.AuthorizeExplicit(context.Background(), identity, []string{"patent_view", "users_view"}, PolicyAll)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	decision, err = engine.AuthorizeExplicit(context.Background(), identity, []string{"patent_view", "audit_view"}, PolicyAll)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.AuthorizeExplicit(context.Background(), identity, nil, PolicyAny)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "empty requirement always passes")
}

func TestAuthorizeGrantSourceFailure(t *testing.T) {
	engine := newTestEngine(t, stubGrants{err: errors.New("connection reset")})

	_, err := engine.Authorize(context.Background(), Identity{ID: 1, Role: RoleStudent}, http.MethodPost, "/ipr/applications")
	assert.Error(t, err)
}

func TestEffectivePermissionsUnion(t *testing.T) {
	engine := newTestEngine(t, stubGrants{keys: map[int64][]string{
		4: {PermIPRReview, PermIPRFile},
	}})

	keys, err := engine.EffectivePermissions(context.Background(), Identity{ID: 4, Role: RoleFaculty})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRFile, PermIPRReview, PermResearchFile}, keys)
}
