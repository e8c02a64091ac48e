package authz

import (
	"fmt"
	"net/http"
	"strings"
)

// RouteRule binds an HTTP method and path pattern to the permission keys
// required to invoke it. Patterns may contain single-segment parameters
// (`/ipr/applications/:id`).
type RouteRule struct {
	Method  string
	Pattern string
	Keys    []string
	Policy  Policy
}

// RouteMap is the ordered collection of route rules. Matching is first rule
// wins in declaration order, not best match, so overlapping rules must be
// declared most-specific-first. A path with no matching rule carries no
// authorization requirement at this layer; default-deny, if wanted, belongs
// to the caller.
type RouteMap struct {
	rules []RouteRule
}

// NewRouteMap validates rule declarations against the catalog and returns an
// immutable map shared read-only across request handlers.
func NewRouteMap(catalog *Catalog, rules ...RouteRule) (*RouteMap, error) {
	for _, rule := range rules {
		if rule.Method == "" || rule.Pattern == "" || !strings.HasPrefix(rule.Pattern, "/") {
			return nil, fmt.Errorf("authz: malformed route rule %q %q", rule.Method, rule.Pattern)
		}
		if len(rule.Keys) == 0 {
			return nil, fmt.Errorf("authz: route rule %s %s declares no keys", rule.Method, rule.Pattern)
		}
		if rule.Policy != PolicyAny && rule.Policy != PolicyAll {
			return nil, fmt.Errorf("authz: route rule %s %s has unknown policy %q", rule.Method, rule.Pattern, rule.Policy)
		}
		if err := catalog.Validate(rule.Keys); err != nil {
			return nil, fmt.Errorf("authz: route rule %s %s: %w", rule.Method, rule.Pattern, err)
		}
	}
	out := make([]RouteRule, len(rules))
	copy(out, rules)
	return &RouteMap{rules: out}, nil
}

// Lookup resolves the first rule matching method and path.
func (m *RouteMap) Lookup(method, path string) (RouteRule, bool) {
	for _, rule := range m.rules {
		if rule.Method == method && matchPattern(rule.Pattern, path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// Rules returns the declared rules in order.
func (m *RouteMap) Rules() []RouteRule {
	out := make([]RouteRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// matchPattern compares pattern and path segment by segment. A `:name`
// segment matches any single non-empty path segment.
func matchPattern(pattern, path string) bool {
	p := strings.Split(strings.Trim(pattern, "/"), "/")
	s := strings.Split(strings.Trim(path, "/"), "/")
	if len(p) != len(s) {
		return false
	}
	for i := range p {
		if strings.HasPrefix(p[i], ":") {
			if s[i] == "" {
				return false
			}
			continue
		}
		if p[i] != s[i] {
			return false
		}
	}
	return true
}

// DefaultRouteMap declares the deploy-time protection for known-sensitive
// routes. Routes absent from this map pass through unprotected; integrators
// adding sensitive routes must add a rule here.
func DefaultRouteMap(catalog *Catalog) (*RouteMap, error) {
	return NewRouteMap(catalog,
		RouteRule{Method: http.MethodPost, Pattern: "/ipr/applications/:id/approve", Keys: []string{PermIPRApprove}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/ipr/applications/:id/review", Keys: []string{PermIPRReview}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/ipr/applications", Keys: []string{PermIPRFile}, Policy: PolicyAny},
		RouteRule{Method: http.MethodGet, Pattern: "/ipr/applications", Keys: []string{PermIPRView, PermIPRReview, PermIPRApprove}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/research/submissions/:id/approve", Keys: []string{PermResearchApprove}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/research/submissions/:id/review", Keys: []string{PermResearchReview}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/research/submissions", Keys: []string{PermResearchFile}, Policy: PolicyAny},
		RouteRule{Method: http.MethodGet, Pattern: "/research/submissions", Keys: []string{PermResearchView, PermResearchReview, PermResearchApprove}, Policy: PolicyAny},
		RouteRule{Method: http.MethodPost, Pattern: "/patents", Keys: []string{PermPatentManage}, Policy: PolicyAny},
		RouteRule{Method: http.MethodGet, Pattern: "/patents", Keys: []string{PermPatentView, PermPatentManage}, Policy: PolicyAny},
	)
}
