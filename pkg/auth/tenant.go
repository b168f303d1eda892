package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrIdentityNotFound is returned by IdentityStore implementations when no
// identity exists for the given ID.
var ErrIdentityNotFound = errors.New("auth: identity not found")

// ErrOrphanedTenant is returned when an employee's owner reference is
// missing or does not resolve to a live owner identity. Callers treat it as
// an authorization failure, never as a runtime error.
var ErrOrphanedTenant = errors.New("auth: owner reference does not resolve to a live owner")

// IdentityStore loads identities from the backing store.
type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (*Identity, error)
}

// ResolveTenant maps an identity to its tenant (firm) ID. Owners are their
// own tenant; employees belong to the tenant of their owner reference.
func ResolveTenant(ctx context.Context, store IdentityStore, ident *Identity) (string, error) {
	switch ident.AccountType {
	case AccountOwner:
		return ident.ID, nil
	case AccountEmployee:
		if ident.OwnerID == nil || *ident.OwnerID == "" {
			return "", ErrOrphanedTenant
		}
		owner, err := store.GetIdentity(ctx, *ident.OwnerID)
		if errors.Is(err, ErrIdentityNotFound) {
			return "", ErrOrphanedTenant
		}
		if err != nil {
			return "", fmt.Errorf("resolve tenant for %s: %w", ident.ID, err)
		}
		if owner.AccountType != AccountOwner || !owner.IsActive {
			return "", ErrOrphanedTenant
		}
		return owner.ID, nil
	default:
		return "", ErrOrphanedTenant
	}
}
