package authz

import "fmt"

// PermissionDefinition describes one fine-grained capability. Definitions are
// fixed at deploy time; nothing creates or mutates them at runtime.
type PermissionDefinition struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Category groups related definitions under one feature module for
// presentation and route-mapping purposes.
type Category struct {
	Name        string                 `json:"name"`
	Module      string                 `json:"module"`
	Permissions []PermissionDefinition `json:"permissions"`
}

// Catalog is the static registry of every permission the platform knows.
// It is built once at startup and shared read-only across request handlers.
type Catalog struct {
	categories []Category
	keys       map[string]struct{}
}

// NewCatalog builds a catalog from category declarations. Duplicate or empty
// keys are rejected so a typo cannot silently split a permission in two.
func NewCatalog(categories ...Category) (*Catalog, error) {
	keys := make(map[string]struct{})
	for _, cat := range categories {
		for _, def := range cat.Permissions {
			if def.Key == "" {
				return nil, fmt.Errorf("authz: empty permission key in category %q", cat.Name)
			}
			if _, dup := keys[def.Key]; dup {
				return nil, fmt.Errorf("authz: duplicate permission key %q", def.Key)
			}
			keys[def.Key] = struct{}{}
		}
	}
	return &Catalog{categories: categories, keys: keys}, nil
}

// IsValidKey reports whether key exists anywhere in the catalog.
func (c *Catalog) IsValidKey(key string) bool {
	_, ok := c.keys[key]
	return ok
}

// Validate returns ErrInvalidKey for the first key not present in the catalog.
func (c *Catalog) Validate(keys []string) error {
	for _, key := range keys {
		if !c.IsValidKey(key) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// Categories returns the catalog grouped for admin presentation. Ordering is
// deterministic: declaration order of categories, then of keys within each.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Len returns the number of registered permission keys.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// DefaultCatalog declares the deploy-time permission registry.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		Category{
			Name:   "IPR Filing & Review",
			Module: "ipr",
			Permissions: []PermissionDefinition{
				{Key: PermIPRFile, Label: "File IPR application", Description: "Submit a new intellectual property application"},
				{Key: PermIPRView, Label: "View IPR applications", Description: "Browse submitted IPR applications"},
				{Key: PermIPRReview, Label: "Review IPR applications", Description: "Record review outcomes on IPR applications"},
				{Key: PermIPRApprove, Label: "Approve IPR applications", Description: "Give final approval on IPR applications"},
			},
		},
		Category{
			Name:   "Research Contributions",
			Module: "research",
			Permissions: []PermissionDefinition{
				{Key: PermResearchFile, Label: "Submit research contribution", Description: "Submit a new research paper or contribution"},
				{Key: PermResearchView, Label: "View research contributions", Description: "Browse submitted research contributions"},
				{Key: PermResearchReview, Label: "Review research contributions", Description: "Record review outcomes on research contributions"},
				{Key: PermResearchApprove, Label: "Approve research contributions", Description: "Give final approval on research contributions"},
			},
		},
		Category{
			Name:   "Patent Registry",
			Module: "patent",
			Permissions: []PermissionDefinition{
				{Key: PermPatentView, Label: "View patents", Description: "Browse the granted patent registry"},
				{Key: PermPatentManage, Label: "Manage patents", Description: "Maintain granted patent records"},
			},
		},
		Category{
			Name:   "Administration",
			Module: "admin",
			Permissions: []PermissionDefinition{
				{Key: PermUsersView, Label: "View users", Description: "Browse platform user accounts"},
				{Key: PermPermissionsView, Label: "View permissions", Description: "Inspect the catalog and per-identity grants"},
				{Key: PermPermissionsManage, Label: "Manage permissions", Description: "Grant, revoke and replace identity permissions"},
				{Key: PermModulesManage, Label: "Manage modules", Description: "Activate and order feature modules"},
				{Key: PermAuditView, Label: "View audit log", Description: "Query the permission mutation audit trail"},
			},
		},
	)
	if err != nil {
		// Declarations above are compile-time constants; a failure here is a
		// programming error caught by the catalog tests.
		panic(err)
	}
	return catalog
}
