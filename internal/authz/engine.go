package authz

import (
	"context"
	"fmt"
	"sort"
)

// GrantSource resolves the stored permission keys for one identity. The
// postgres repository implements it directly; CachedGrants wraps it with a
// Redis read-through.
type GrantSource interface {
	KeysFor(ctx context.Context, identityID int64) ([]string, error)
}

// Reason classifies an authorization decision for observability. Reasons are
// diagnostic; they are not rendered verbatim to the denied party.
type Reason string

const (
	ReasonGranted      Reason = "granted"
	ReasonNoRuleMatch  Reason = "no_rule_match"
	ReasonInsufficient Reason = "insufficient_permissions"
)

// Decision is the outcome of one authorization evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Engine evaluates whether an identity satisfies a route's or an explicit
// check's required permission set. Evaluation is read-only and safe for
// arbitrarily many concurrent requests; the catalog and route map are never
// mutated after startup and the grant source owns its own connections.
type Engine struct {
	routes *RouteMap
	grants GrantSource
}

// NewEngine constructs an Engine over the given route map and grant source.
func NewEngine(routes *RouteMap, grants GrantSource) *Engine {
	return &Engine{routes: routes, grants: grants}
}

// Authorize resolves the route rule for method+path and evaluates it against
// the identity's effective permission set. A path with no matching rule is
// allowed with ReasonNoRuleMatch; callers wanting default-deny must layer it
// themselves.
func (e *Engine) Authorize(ctx context.Context, identity Identity, method, path string) (Decision, error) {
	rule, ok := e.routes.Lookup(method, path)
	if !ok {
		return Decision{Allowed: true, Reason: ReasonNoRuleMatch}, nil
	}
	return e.AuthorizeExplicit(ctx, identity, rule.Keys, rule.Policy)
}

// AuthorizeExplicit evaluates an arbitrary required key set against the
// identity's effective permission set, for checks that don't fit the
// method+path model.
func (e *Engine) AuthorizeExplicit(ctx context.Context, identity Identity, keys []string, policy Policy) (Decision, error) {
	effective, err := e.effectiveSet(ctx, identity)
	if err != nil {
		return Decision{}, err
	}
	if satisfies(effective, keys, policy) {
		return Decision{Allowed: true, Reason: ReasonGranted}, nil
	}
	return Decision{Allowed: false, Reason: ReasonInsufficient}, nil
}

// EffectivePermissions returns the sorted union of the identity's role
// defaults and stored grants.
func (e *Engine) EffectivePermissions(ctx context.Context, identity Identity) ([]string, error) {
	effective, err := e.effectiveSet(ctx, identity)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(effective))
	for key := range effective {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (e *Engine) effectiveSet(ctx context.Context, identity Identity) (map[string]struct{}, error) {
	granted, err := e.grants.KeysFor(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("authz: resolve grants for %d: %w", identity.ID, err)
	}
	effective := make(map[string]struct{}, len(granted)+2)
	for _, key := range DefaultsFor(identity.Role) {
		effective[key] = struct{}{}
	}
	for _, key := range granted {
		effective[key] = struct{}{}
	}
	return effective, nil
}

func satisfies(effective map[string]struct{}, required []string, policy Policy) bool {
	if len(required) == 0 {
		return true
	}
	switch policy {
	case PolicyAll:
		for _, key := range required {
			if _, ok := effective[key]; !ok {
				return false
			}
		}
		return true
	default:
		for _, key := range required {
			if _, ok := effective[key]; ok {
				return true
			}
		}
		return false
	}
}
