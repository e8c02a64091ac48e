package identity

import (
	"time"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

// User is a platform account as the authorization subsystem sees it. The
// authentication service owns the account lifecycle; this package only reads.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      authz.Role
	IsActive  bool
	CreatedAt time.Time
}
