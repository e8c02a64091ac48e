package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides PostgreSQL backed persistence for audit records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// AppendTx writes one record inside the caller's transaction. The grant
// service is the only caller; coupling the append to the mutation transaction
// is what keeps the store and the trail atomically in step.
func AppendTx(ctx context.Context, tx pgx.Tx, rec Record) error {
	if rec.ActorID == 0 || rec.TargetID == 0 || rec.Action == "" {
		return errors.New("audit: record requires actor, target and action")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO permission_audit (id, actor_id, action, target_id, affected_keys, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ActorID, string(rec.Action), rec.TargetID, rec.AffectedKeys, rec.At)
	return err
}

// Query returns records matching the filter ordered by timestamp ascending.
// Reads take no locks; read-committed visibility is sufficient here.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, actor_id, action, target_id, affected_keys, occurred_at
		 FROM permission_audit
		 WHERE ($1 = 0 OR actor_id = $1)
		   AND ($2 = 0 OR target_id = $2)
		   AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		   AND ($4::timestamptz IS NULL OR occurred_at <= $4)
		 ORDER BY occurred_at ASC, id ASC
		 OFFSET $5 LIMIT $6`,
		filter.ActorID, filter.TargetID, nullableTime(filter.From), nullableTime(filter.To), filter.Offset, queryLimit(filter.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var action string
		if err := rows.Scan(&rec.ID, &rec.ActorID, &action, &rec.TargetID, &rec.AffectedKeys, &rec.At); err != nil {
			return nil, err
		}
		rec.Action = Action(action)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func queryLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}
