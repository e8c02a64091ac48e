package patent

import "time"

// Registration is one entry in the institutional patent registry. Entries are
// recorded by the IPR office once a filing clears approval.
type Registration struct {
	ID             int64
	ApplicationID  int64
	RegistryNumber string
	Jurisdiction   string
	RegisteredBy   int64
	RegisteredAt   time.Time
}
