package authz

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris-edu/scholaris/internal/audit"
	_ "github.com/scholaris-edu/scholaris/internal/testing/guard"
)

type memStore struct {
	grants map[int64]map[string]GrantedPermission
	audits []audit.Record

	txErr        error
	replaceTxErr error
	insertErrKey string
}

func newMemStore() *memStore {
	return &memStore{grants: make(map[int64]map[string]GrantedPermission)}
}

func (s *memStore) seed(identityID int64, grantedBy int64, keys ...string) {
	for _, key := range keys {
		if s.grants[identityID] == nil {
			s.grants[identityID] = make(map[string]GrantedPermission)
		}
		s.grants[identityID][key] = GrantedPermission{
			IdentityID: identityID, Key: key, GrantedBy: grantedBy,
		}
	}
}

func (s *memStore) KeysFor(_ context.Context, identityID int64) ([]string, error) {
	keys := make([]string, 0, len(s.grants[identityID]))
	for key := range s.grants[identityID] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memStore) ListGrants(_ context.Context, identityID int64) ([]GrantedPermission, error) {
	out := make([]GrantedPermission, 0, len(s.grants[identityID]))
	for _, g := range s.grants[identityID] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// WithTx emulates transactional behavior: on error the snapshot is restored,
// so partial writes never survive.
func (s *memStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if s.txErr != nil {
		return s.txErr
	}
	return s.run(ctx, fn)
}

func (s *memStore) WithReplaceTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if s.replaceTxErr != nil {
		return s.replaceTxErr
	}
	return s.run(ctx, fn)
}

func (s *memStore) run(ctx context.Context, fn func(context.Context, TxStore) error) error {
	snapGrants := make(map[int64]map[string]GrantedPermission, len(s.grants))
	for id, set := range s.grants {
		cp := make(map[string]GrantedPermission, len(set))
		for k, v := range set {
			cp[k] = v
		}
		snapGrants[id] = cp
	}
	snapAudits := len(s.audits)
	if err := fn(ctx, &memTx{store: s}); err != nil {
		s.grants = snapGrants
		s.audits = s.audits[:snapAudits]
		return err
	}
	return nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) InsertGrant(_ context.Context, grant GrantedPermission) (bool, error) {
	if t.store.insertErrKey != "" && grant.Key == t.store.insertErrKey {
		return false, errors.New("insert failed")
	}
	set := t.store.grants[grant.IdentityID]
	if set == nil {
		set = make(map[string]GrantedPermission)
		t.store.grants[grant.IdentityID] = set
	}
	if _, held := set[grant.Key]; held {
		return false, nil
	}
	set[grant.Key] = grant
	return true, nil
}

func (t *memTx) DeleteGrant(_ context.Context, identityID int64, key string) (bool, error) {
	set := t.store.grants[identityID]
	if _, held := set[key]; !held {
		return false, nil
	}
	delete(set, key)
	return true, nil
}

func (t *memTx) ListKeysForUpdate(ctx context.Context, identityID int64) ([]string, error) {
	return t.store.KeysFor(ctx, identityID)
}

func (t *memTx) DeleteAllGrants(_ context.Context, identityID int64) error {
	delete(t.store.grants, identityID)
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, rec audit.Record) error {
	t.store.audits = append(t.store.audits, rec)
	return nil
}

type recordingInvalidator struct {
	ids []int64
	err error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, identityID int64) error {
	r.ids = append(r.ids, identityID)
	return r.err
}

var (
	manager  = Identity{ID: 100, Role: RoleAdmin}
	bystander = Identity{ID: 101, Role: RoleStaff}
)

func newTestService(t *testing.T, store *memStore, cache Invalidator) *Service {
	t.Helper()
	store.seed(manager.ID, manager.ID, PermPermissionsManage)
	catalog := DefaultCatalog()
	routes, err := DefaultRouteMap(catalog)
	require.NoError(t, err)
	engine := NewEngine(routes, store)
	return NewService(store, catalog, engine, cache, nil)
}

func TestGrantInsertsAndAudits(t *testing.T) {
	store := newMemStore()
	cache := &recordingInvalidator{}
	svc := newTestService(t, store, cache)

	result, err := svc.Grant(context.Background(), manager, 5, []string{PermIPRReview, PermIPRView})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRReview, PermIPRView}, result.AffectedKeys)
	assert.Equal(t, 2, result.Count)

	keys, _ := store.KeysFor(context.Background(), 5)
	assert.Equal(t, []string{PermIPRReview, PermIPRView}, keys)

	require.Len(t, store.audits, 1)
	rec := store.audits[0]
	assert.Equal(t, audit.ActionGrant, rec.Action)
	assert.Equal(t, manager.ID, rec.ActorID)
	assert.Equal(t, int64(5), rec.TargetID)
	assert.Equal(t, []string{PermIPRReview, PermIPRView}, rec.AffectedKeys)

	assert.Equal(t, []int64{5}, cache.ids)
}

func TestGrantIdempotentPerKey(t *testing.T) {
	store := newMemStore()
	store.seed(5, manager.ID, PermIPRView)
	svc := newTestService(t, store, nil)

	result, err := svc.Grant(context.Background(), manager, 5, []string{PermIPRView, PermIPRReview})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRReview}, result.AffectedKeys, "held key is a no-op")

	require.Len(t, store.audits, 1)
	assert.Equal(t, []string{PermIPRReview}, store.audits[0].AffectedKeys)
}

func TestGrantNormalizesKeys(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)

	result, err := svc.Grant(context.Background(), manager, 5, []string{" IPR_VIEW ", "ipr_view"})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRView}, result.AffectedKeys)
}

func TestGrantInvalidKeyRejectsWholeBatch(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Grant(context.Background(), manager, 5, []string{PermIPRView, "ghost_key"})
	require.ErrorIs(t, err, ErrInvalidKey)

	keys, _ := store.KeysFor(context.Background(), 5)
	assert.Empty(t, keys, "nothing applied when one key is invalid")
	assert.Empty(t, store.audits)
}

func TestGrantRequiresManageCapability(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Grant(context.Background(), bystander, 5, []string{PermIPRView})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.audits)
}

func TestGrantValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil)

	_, err := svc.Grant(context.Background(), Identity{}, 5, []string{PermIPRView})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Grant(context.Background(), manager, 0, []string{PermIPRView})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Grant(context.Background(), manager, 5, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.Grant(context.Background(), manager, 5, []string{"  "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGrantFailureRollsBack(t *testing.T) {
	store := newMemStore()
	store.insertErrKey = PermIPRReview
	svc := newTestService(t, store, nil)

	_, err := svc.Grant(context.Background(), manager, 5, []string{PermIPRFile, PermIPRReview})
	require.Error(t, err)

	keys, _ := store.KeysFor(context.Background(), 5)
	assert.Empty(t, keys, "partial insert must not survive")
	assert.Empty(t, store.audits)
}

func TestRevokeSkipsKeysNotHeld(t *testing.T) {
	store := newMemStore()
	store.seed(5, manager.ID, PermIPRView, PermIPRReview)
	svc := newTestService(t, store, nil)

	result, err := svc.Revoke(context.Background(), manager, 5, []string{PermIPRView, PermAuditView})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRView}, result.AffectedKeys)

	keys, _ := store.KeysFor(context.Background(), 5)
	assert.Equal(t, []string{PermIPRReview}, keys)

	require.Len(t, store.audits, 1)
	rec := store.audits[0]
	assert.Equal(t, audit.ActionRevoke, rec.Action)
	assert.Equal(t, []string{PermIPRView}, rec.AffectedKeys)
}

func TestReplaceSwapsExactSet(t *testing.T) {
	store := newMemStore()
	store.seed(5, 42, PermIPRView, PermIPRReview)
	svc := newTestService(t, store, nil)

	result, err := svc.Replace(context.Background(), manager, 5, []string{PermIPRReview, PermAuditView})
	require.NoError(t, err)
	assert.Equal(t, []string{PermAuditView, PermIPRReview}, result.AffectedKeys)

	grants, _ := store.ListGrants(context.Background(), 5)
	require.Len(t, grants, 2)
	assert.Equal(t, PermAuditView, grants[0].Key)
	assert.Equal(t, manager.ID, grants[0].GrantedBy, "provenance reset to the replacing actor")

	require.Len(t, store.audits, 1)
	rec := store.audits[0]
	assert.Equal(t, audit.ActionReplace, rec.Action)
	assert.Equal(t, []string{PermAuditView, PermIPRReview}, rec.AffectedKeys)
}

func TestReplaceEmptySetClearsGrants(t *testing.T) {
	store := newMemStore()
	store.seed(5, 42, PermIPRView)
	svc := newTestService(t, store, nil)

	result, err := svc.Replace(context.Background(), manager, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, []string{}, result.AffectedKeys)

	keys, _ := store.KeysFor(context.Background(), 5)
	assert.Empty(t, keys)

	require.Len(t, store.audits, 1)
	assert.Equal(t, audit.ActionReplace, store.audits[0].Action)
	assert.Equal(t, []string{}, store.audits[0].AffectedKeys)
}

func TestReplaceMapsStorageConflict(t *testing.T) {
	store := newMemStore()
	store.replaceTxErr = &pgconn.PgError{Code: "40001", Message: "serialization failure"}
	svc := newTestService(t, store, nil)

	_, err := svc.Replace(context.Background(), manager, 5, []string{PermIPRView})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPermissionsReadModel(t *testing.T) {
	store := newMemStore()
	store.seed(5, manager.ID, PermIPRReview)
	svc := newTestService(t, store, nil)

	perms, err := svc.Permissions(context.Background(), Identity{ID: 5, Role: RoleFaculty})
	require.NoError(t, err)
	assert.Equal(t, []string{PermIPRFile, PermResearchFile}, perms.Defaults)
	require.Len(t, perms.Granted, 1)
	assert.Equal(t, PermIPRReview, perms.Granted[0].Key)
	assert.Equal(t, []string{PermIPRFile, PermIPRReview, PermResearchFile}, perms.Effective)
}
