package authz

// DefaultsFor returns the permission keys a role holds implicitly, without
// any stored grant record.
//
// Students and faculty may always file in both protected domains; that right
// is inherent to the role and needs no administrator action. Staff and admin
// start empty. Admin is deliberately excluded from operational defaults: its
// role is identity and permission management, not domain operation, so giving
// an admin a filing or review key takes the same explicit grant as for anyone
// else.
func DefaultsFor(role Role) []string {
	switch role {
	case RoleStudent, RoleFaculty:
		return []string{PermIPRFile, PermResearchFile}
	default:
		return nil
	}
}
