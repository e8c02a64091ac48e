package authz

import "errors"

var (
	// ErrUnauthenticated indicates no identity was attached to the request.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden indicates the identity lacks the required permissions.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrInvalidKey indicates a permission key unknown to the catalog.
	ErrInvalidKey = errors.New("authz: invalid permission key")
	// ErrInvalidArgument indicates a malformed mutation request.
	ErrInvalidArgument = errors.New("authz: invalid argument")
	// ErrConflict indicates a competing mutation was detected; callers may retry.
	ErrConflict = errors.New("authz: conflict")
)
