package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names the kind of permission mutation a record documents.
type Action string

const (
	ActionGrant   Action = "GRANT"
	ActionRevoke  Action = "REVOKE"
	ActionReplace Action = "REPLACE"
)

// Record is one append-only entry in the permission audit trail. Records are
// written in the same transaction as the mutation they document and are never
// updated or deleted.
type Record struct {
	ID           uuid.UUID
	ActorID      int64
	Action       Action
	TargetID     int64
	AffectedKeys []string
	At           time.Time
}

// Filter narrows an audit query. Zero values mean "no constraint".
type Filter struct {
	ActorID  int64
	TargetID int64
	From     time.Time
	To       time.Time
	Offset   int
	Limit    int
}

// PagingInfo describes the window returned by a paged query.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}
