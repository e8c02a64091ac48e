package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/scholaris-edu/scholaris/internal/audit"
)

// Invalidator drops cached grants after a successful mutation commit.
type Invalidator interface {
	Invalidate(ctx context.Context, identityID int64) error
}

// MutationResult reports the keys a mutation actually changed, which can be
// narrower than the keys requested when some were no-ops.
type MutationResult struct {
	AffectedKeys []string
	Count        int
}

// IdentityPermissions is the read model behind the admin permissions view.
type IdentityPermissions struct {
	Identity  Identity
	Defaults  []string
	Granted   []GrantedPermission
	Effective []string
}

// Service executes the administrator-facing grant, revoke and replace
// mutations. Every mutation requires the caller to hold the manage capability
// and writes exactly one audit record in the same transaction as the store
// change it documents.
type Service struct {
	store   Store
	catalog *Catalog
	engine  *Engine
	cache   Invalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the mutation service. cache may be nil.
func NewService(store Store, catalog *Catalog, engine *Engine, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, catalog: catalog, engine: engine, cache: cache, logger: logger, now: time.Now}
}

// Grant inserts each key for the target unless already present. Re-granting a
// held key is a no-op for that key, not an error. Invalid keys reject the
// whole batch before any insert.
func (s *Service) Grant(ctx context.Context, actor Identity, targetID int64, keys []string) (MutationResult, error) {
	normalized, err := s.validateMutation(ctx, actor, targetID, keys, false)
	if err != nil {
		return MutationResult{}, err
	}
	var granted []string
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		grantedAt := s.now().UTC()
		for _, key := range normalized {
			inserted, err := tx.InsertGrant(ctx, GrantedPermission{
				IdentityID: targetID,
				Key:        key,
				GrantedBy:  actor.ID,
				GrantedAt:  grantedAt,
			})
			if err != nil {
				return err
			}
			if inserted {
				granted = append(granted, key)
			}
		}
		return tx.AppendAudit(ctx, audit.Record{
			ActorID:      actor.ID,
			Action:       audit.ActionGrant,
			TargetID:     targetID,
			AffectedKeys: affected(granted),
			At:           grantedAt,
		})
	})
	if err != nil {
		granted = nil
		return MutationResult{}, fmt.Errorf("authz: grant: %w", err)
	}
	s.invalidate(ctx, targetID)
	s.logger.Info("permissions granted",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", targetID),
		slog.Any("keys", granted))
	return MutationResult{AffectedKeys: affected(granted), Count: len(granted)}, nil
}

// Revoke deletes matching rows; keys not currently held are silently skipped.
func (s *Service) Revoke(ctx context.Context, actor Identity, targetID int64, keys []string) (MutationResult, error) {
	normalized, err := s.validateMutation(ctx, actor, targetID, keys, false)
	if err != nil {
		return MutationResult{}, err
	}
	var revoked []string
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		for _, key := range normalized {
			deleted, err := tx.DeleteGrant(ctx, targetID, key)
			if err != nil {
				return err
			}
			if deleted {
				revoked = append(revoked, key)
			}
		}
		return tx.AppendAudit(ctx, audit.Record{
			ActorID:      actor.ID,
			Action:       audit.ActionRevoke,
			TargetID:     targetID,
			AffectedKeys: affected(revoked),
			At:           s.now().UTC(),
		})
	})
	if err != nil {
		revoked = nil
		return MutationResult{}, fmt.Errorf("authz: revoke: %w", err)
	}
	s.invalidate(ctx, targetID)
	s.logger.Info("permissions revoked",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", targetID),
		slog.Any("keys", revoked))
	return MutationResult{AffectedKeys: affected(revoked), Count: len(revoked)}, nil
}

// Replace atomically swaps the target's stored grants for exactly the given
// set. The delete and insert share one transaction, so a concurrent reader
// sees either the old set or the new set, never an intermediate empty state.
// A competing in-flight mutation on the same target surfaces as ErrConflict.
func (s *Service) Replace(ctx context.Context, actor Identity, targetID int64, keys []string) (MutationResult, error) {
	// An empty set is a valid replacement target: it clears every grant.
	normalized, err := s.validateMutation(ctx, actor, targetID, keys, true)
	if err != nil {
		return MutationResult{}, err
	}
	err = s.store.WithReplaceTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.ListKeysForUpdate(ctx, targetID); err != nil {
			return err
		}
		if err := tx.DeleteAllGrants(ctx, targetID); err != nil {
			return err
		}
		grantedAt := s.now().UTC()
		for _, key := range normalized {
			if _, err := tx.InsertGrant(ctx, GrantedPermission{
				IdentityID: targetID,
				Key:        key,
				GrantedBy:  actor.ID,
				GrantedAt:  grantedAt,
			}); err != nil {
				return err
			}
		}
		return tx.AppendAudit(ctx, audit.Record{
			ActorID:      actor.ID,
			Action:       audit.ActionReplace,
			TargetID:     targetID,
			AffectedKeys: affected(normalized),
			At:           grantedAt,
		})
	})
	if err != nil {
		if isStorageConflict(err) {
			return MutationResult{}, fmt.Errorf("%w: replace for identity %d", ErrConflict, targetID)
		}
		return MutationResult{}, fmt.Errorf("authz: replace: %w", err)
	}
	s.invalidate(ctx, targetID)
	s.logger.Info("permissions replaced",
		slog.Int64("actor_id", actor.ID),
		slog.Int64("target_id", targetID),
		slog.Any("keys", normalized))
	return MutationResult{AffectedKeys: affected(normalized), Count: len(normalized)}, nil
}

// Permissions assembles the admin read model for one identity.
func (s *Service) Permissions(ctx context.Context, target Identity) (IdentityPermissions, error) {
	granted, err := s.store.ListGrants(ctx, target.ID)
	if err != nil {
		return IdentityPermissions{}, err
	}
	effective, err := s.engine.EffectivePermissions(ctx, target)
	if err != nil {
		return IdentityPermissions{}, err
	}
	return IdentityPermissions{
		Identity:  target,
		Defaults:  DefaultsFor(target.Role),
		Granted:   granted,
		Effective: effective,
	}, nil
}

// validateMutation runs every check that must pass before a transaction
// opens: capability of the actor, shape of the request, validity of each key.
func (s *Service) validateMutation(ctx context.Context, actor Identity, targetID int64, keys []string, allowEmpty bool) ([]string, error) {
	if actor.ID == 0 {
		return nil, ErrUnauthenticated
	}
	decision, err := s.engine.AuthorizeExplicit(ctx, actor, []string{PermPermissionsManage}, PolicyAny)
	if err != nil {
		return nil, fmt.Errorf("authz: capability check: %w", err)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: actor %d may not manage permissions", ErrForbidden, actor.ID)
	}
	if targetID <= 0 {
		return nil, fmt.Errorf("%w: missing target identity", ErrInvalidArgument)
	}
	normalized := normalizeKeys(keys)
	if len(normalized) == 0 && !allowEmpty {
		return nil, fmt.Errorf("%w: empty permission key set", ErrInvalidArgument)
	}
	if err := s.catalog.Validate(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func (s *Service) invalidate(ctx context.Context, targetID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, targetID); err != nil {
		s.logger.Warn("grant cache invalidate", slog.Int64("identity_id", targetID), slog.Any("error", err))
	}
}

func normalizeKeys(keys []string) []string {
	unique := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(strings.ToLower(key))
		if key == "" {
			continue
		}
		unique[key] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for key := range unique {
		normalized = append(normalized, key)
	}
	sort.Strings(normalized)
	return normalized
}

func affected(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	sort.Strings(keys)
	return keys
}
