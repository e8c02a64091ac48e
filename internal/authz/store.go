package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/audit"
	"github.com/scholaris-edu/scholaris/internal/platform/db"
)

// Store is the persistence contract the grant service mutates through.
type Store interface {
	GrantSource
	ListGrants(ctx context.Context, identityID int64) ([]GrantedPermission, error)
	// WithTx runs fn against a read-committed transactional view.
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	// WithReplaceTx runs fn under repeatable read, for the delete-all plus
	// insert-all shape of Replace.
	WithReplaceTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore exposes the mutations available inside one transaction. The audit
// append rides the same transaction so the store and the trail move together.
type TxStore interface {
	InsertGrant(ctx context.Context, grant GrantedPermission) (bool, error)
	DeleteGrant(ctx context.Context, identityID int64, key string) (bool, error)
	ListKeysForUpdate(ctx context.Context, identityID int64) ([]string, error)
	DeleteAllGrants(ctx context.Context, identityID int64) error
	AppendAudit(ctx context.Context, rec audit.Record) error
}

// Repository provides PostgreSQL backed persistence for granted permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// KeysFor returns the stored permission keys for one identity.
func (r *Repository) KeysFor(ctx context.Context, identityID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission_key FROM granted_permissions WHERE identity_id = $1 ORDER BY permission_key`,
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ListGrants returns the full grant rows for one identity including provenance.
func (r *Repository) ListGrants(ctx context.Context, identityID int64) ([]GrantedPermission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT identity_id, permission_key, granted_by, granted_at
		 FROM granted_permissions WHERE identity_id = $1 ORDER BY permission_key`,
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []GrantedPermission
	for rows.Next() {
		var g GrantedPermission
		if err := rows.Scan(&g.IdentityID, &g.Key, &g.GrantedBy, &g.GrantedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// WithTx implements Store.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

// WithReplaceTx implements Store.
func (r *Repository) WithReplaceTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithRepeatableReadTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

// InsertGrant inserts if no row exists for (identity, key). The conditional
// insert is what makes concurrent grants of the same pair idempotent instead
// of racing to a duplicate-row error.
func (t *txStore) InsertGrant(ctx context.Context, grant GrantedPermission) (bool, error) {
	grantedAt := grant.GrantedAt
	if grantedAt.IsZero() {
		grantedAt = time.Now().UTC()
	}
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO granted_permissions (identity_id, permission_key, granted_by, granted_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (identity_id, permission_key) DO NOTHING`,
		grant.IdentityID, grant.Key, grant.GrantedBy, grantedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteGrant removes one row; reports whether a row was actually held.
func (t *txStore) DeleteGrant(ctx context.Context, identityID int64, key string) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM granted_permissions WHERE identity_id = $1 AND permission_key = $2`,
		identityID, key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListKeysForUpdate locks the identity's grant rows for the duration of the
// transaction so Replace cannot interleave with a concurrent grant or revoke.
func (t *txStore) ListKeysForUpdate(ctx context.Context, identityID int64) ([]string, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT permission_key FROM granted_permissions WHERE identity_id = $1 ORDER BY permission_key FOR UPDATE`,
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteAllGrants removes every grant row for the identity.
func (t *txStore) DeleteAllGrants(ctx context.Context, identityID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM granted_permissions WHERE identity_id = $1`, identityID)
	return err
}

// AppendAudit writes the paired audit record inside this transaction.
func (t *txStore) AppendAudit(ctx context.Context, rec audit.Record) error {
	return audit.AppendTx(ctx, t.tx, rec)
}

// isStorageConflict reports whether err is a serialization failure or unique
// violation from a competing in-flight mutation.
func isStorageConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "23505"
}
