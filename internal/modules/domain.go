package modules

import "time"

// Module is one logical feature area grouping related permissions for
// presentation and route mapping. Admin-managed, rarely mutated.
type Module struct {
	ID           int64
	Slug         string
	Name         string
	DisplayOrder int
	IsActive     bool
	UpdatedAt    time.Time
}
