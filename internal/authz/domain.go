package authz

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles known to the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role value coming from storage.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent, RoleFaculty, RoleStaff, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("authz: unknown role %q", raw)
}

// Identity describes the authenticated actor. It is produced by the
// authentication collaborator before authorization runs; this subsystem
// only reads ID and Role.
type Identity struct {
	ID   int64
	Role Role
}

// Policy decides how a required key set must be satisfied.
type Policy string

const (
	// PolicyAny passes when at least one required key is held.
	PolicyAny Policy = "any"
	// PolicyAll passes only when every required key is held.
	PolicyAll Policy = "all"
)

// GrantedPermission is one row of the identity-to-permission relation.
// Mutations never update in place; rows are inserted and deleted whole so
// GrantedBy/GrantedAt always describe the current period of validity.
type GrantedPermission struct {
	IdentityID int64
	Key        string
	GrantedBy  int64
	GrantedAt  time.Time
}
