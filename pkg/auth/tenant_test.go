package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentityStore struct {
	identities map[string]*Identity
	err        error
}

func (f *fakeIdentityStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	ident, ok := f.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return ident, nil
}

func strPtr(s string) *string { return &s }

func TestResolveTenant_Owner(t *testing.T) {
	store := &fakeIdentityStore{}
	owner := &Identity{ID: "owner-1", AccountType: AccountOwner, IsActive: true}

	tenantID, err := ResolveTenant(context.Background(), store, owner)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", tenantID)
}

func TestResolveTenant_Employee(t *testing.T) {
	store := &fakeIdentityStore{identities: map[string]*Identity{
		"owner-1": {ID: "owner-1", AccountType: AccountOwner, IsActive: true},
	}}
	employee := &Identity{ID: "emp-1", AccountType: AccountEmployee, OwnerID: strPtr("owner-1")}

	tenantID, err := ResolveTenant(context.Background(), store, employee)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", tenantID)
}

func TestResolveTenant_MissingOwnerReference(t *testing.T) {
	store := &fakeIdentityStore{}

	for _, employee := range []*Identity{
		{ID: "emp-1", AccountType: AccountEmployee, OwnerID: nil},
		{ID: "emp-2", AccountType: AccountEmployee, OwnerID: strPtr("")},
	} {
		_, err := ResolveTenant(context.Background(), store, employee)
		assert.ErrorIs(t, err, ErrOrphanedTenant)
	}
}

func TestResolveTenant_DanglingOwnerReference(t *testing.T) {
	store := &fakeIdentityStore{identities: map[string]*Identity{}}
	employee := &Identity{ID: "emp-1", AccountType: AccountEmployee, OwnerID: strPtr("gone")}

	_, err := ResolveTenant(context.Background(), store, employee)
	assert.ErrorIs(t, err, ErrOrphanedTenant)
}

func TestResolveTenant_OwnerReferenceNotAnOwner(t *testing.T) {
	store := &fakeIdentityStore{identities: map[string]*Identity{
		"emp-0": {ID: "emp-0", AccountType: AccountEmployee, IsActive: true},
	}}
	employee := &Identity{ID: "emp-1", AccountType: AccountEmployee, OwnerID: strPtr("emp-0")}

	_, err := ResolveTenant(context.Background(), store, employee)
	assert.ErrorIs(t, err, ErrOrphanedTenant)
}

func TestResolveTenant_DeactivatedOwner(t *testing.T) {
	store := &fakeIdentityStore{identities: map[string]*Identity{
		"owner-1": {ID: "owner-1", AccountType: AccountOwner, IsActive: false},
	}}
	employee := &Identity{ID: "emp-1", AccountType: AccountEmployee, OwnerID: strPtr("owner-1")}

	_, err := ResolveTenant(context.Background(), store, employee)
	assert.ErrorIs(t, err, ErrOrphanedTenant)
}

func TestResolveTenant_StoreFailureIsNotOrphaned(t *testing.T) {
	// Infrastructure failures must stay distinguishable from authorization
	// failures so they surface as 5xx, not 403.
	storeErr := errors.New("connection refused")
	store := &fakeIdentityStore{err: storeErr}
	employee := &Identity{ID: "emp-1", AccountType: AccountEmployee, OwnerID: strPtr("owner-1")}

	_, err := ResolveTenant(context.Background(), store, employee)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrphanedTenant)
	assert.ErrorIs(t, err, storeErr)
}

func TestResolveTenant_UnknownAccountType(t *testing.T) {
	store := &fakeIdentityStore{}
	ident := &Identity{ID: "x", AccountType: "bot"}

	_, err := ResolveTenant(context.Background(), store, ident)
	assert.ErrorIs(t, err, ErrOrphanedTenant)
}
