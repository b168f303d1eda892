package guard

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chambersapp/chambers/pkg/auth"
)

func strPtr(s string) *string { return &s }

func ownerIdentity(id string) *auth.Identity {
	return &auth.Identity{
		ID:          id,
		AccountType: auth.AccountOwner,
		Permissions: auth.FullMatrix(),
		IsActive:    true,
	}
}

func employeeIdentity(id, ownerID string, perms auth.PermissionMatrix) *auth.Identity {
	return &auth.Identity{
		ID:          id,
		AccountType: auth.AccountEmployee,
		OwnerID:     &ownerID,
		Role:        auth.RoleLawyer,
		Permissions: perms,
		IsActive:    true,
	}
}

func TestAuthorize_OwnerOwnFirm(t *testing.T) {
	owner := ownerIdentity("firm-1")
	res := Resource{FirmID: "firm-1", CreatedBy: "emp-1"}

	for _, action := range []string{auth.ActionView, auth.ActionEdit, auth.ActionDelete} {
		d := Authorize(owner, "firm-1", res, auth.CategoryCases, action)
		assert.True(t, d.Allowed, "owner must reach any row in the firm, action %q", action)
	}
}

func TestAuthorize_CrossTenantCheckedFirst(t *testing.T) {
	// Even a tenant-wide viewAll grant must not reach another firm's row.
	perms := auth.EmptyMatrix()
	perms.Grant(auth.CategoryCases, auth.ActionViewAll)
	emp := employeeIdentity("emp-1", "firm-1", perms)

	res := Resource{FirmID: "firm-2", CreatedBy: "emp-9"}

	d := Authorize(emp, "firm-1", res, auth.CategoryCases, auth.ActionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, auth.ReasonCrossTenantAccess, d.Reason)
	assert.Equal(t, http.StatusNotFound, d.Status, "cross-tenant reads must not confirm existence")
}

func TestAuthorize_CrossTenantMutationIs403(t *testing.T) {
	owner := ownerIdentity("firm-1")
	res := Resource{FirmID: "firm-2", CreatedBy: "emp-9"}

	d := Authorize(owner, "firm-1", res, auth.CategoryCases, auth.ActionDelete)
	assert.False(t, d.Allowed)
	assert.Equal(t, auth.ReasonCrossTenantAccess, d.Reason)
	assert.Equal(t, http.StatusForbidden, d.Status)
}

func TestAuthorize_ViewAllReachesWholeFirm(t *testing.T) {
	perms := auth.EmptyMatrix()
	perms.Grant(auth.CategoryCases, auth.ActionViewAll)
	emp := employeeIdentity("emp-1", "firm-1", perms)

	res := Resource{FirmID: "firm-1", CreatedBy: "emp-9", AssignedTo: strPtr("emp-9")}

	d := Authorize(emp, "firm-1", res, auth.CategoryCases, auth.ActionView)
	assert.True(t, d.Allowed)
}

func TestAuthorize_ViewOnlyRequiresRelationship(t *testing.T) {
	perms := auth.EmptyMatrix()
	perms.Grant(auth.CategoryCases, auth.ActionView)
	emp := employeeIdentity("emp-1", "firm-1", perms)

	tests := []struct {
		name    string
		res     Resource
		allowed bool
	}{
		{"assigned to self", Resource{FirmID: "firm-1", AssignedTo: strPtr("emp-1"), CreatedBy: "emp-9"}, true},
		{"created by self", Resource{FirmID: "firm-1", CreatedBy: "emp-1"}, true},
		{"unrelated row same firm", Resource{FirmID: "firm-1", AssignedTo: strPtr("emp-2"), CreatedBy: "emp-9"}, false},
		{"unassigned row same firm", Resource{FirmID: "firm-1", CreatedBy: "emp-9"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(emp, "firm-1", tt.res, auth.CategoryCases, auth.ActionView)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, auth.ReasonPermissionDenied, d.Reason)
				assert.Equal(t, http.StatusForbidden, d.Status)
			}
		})
	}
}

func TestAuthorize_MutationNeedsActionGrant(t *testing.T) {
	// A view grant plus assignment must not unlock edits.
	perms := auth.EmptyMatrix()
	perms.Grant(auth.CategoryCases, auth.ActionView)
	emp := employeeIdentity("emp-1", "firm-1", perms)

	res := Resource{FirmID: "firm-1", AssignedTo: strPtr("emp-1"), CreatedBy: "emp-1"}

	d := Authorize(emp, "firm-1", res, auth.CategoryCases, auth.ActionEdit)
	assert.False(t, d.Allowed)
	assert.Equal(t, auth.ReasonPermissionDenied, d.Reason)
}

func TestAuthorize_EditGrantReachesWholeFirm(t *testing.T) {
	perms := auth.EmptyMatrix()
	perms.Grant(auth.CategoryCases, auth.ActionEdit)
	emp := employeeIdentity("emp-1", "firm-1", perms)

	res := Resource{FirmID: "firm-1", CreatedBy: "emp-9"}

	d := Authorize(emp, "firm-1", res, auth.CategoryCases, auth.ActionEdit)
	assert.True(t, d.Allowed)
}

func TestAuthorize_NilIdentity(t *testing.T) {
	d := Authorize(nil, "firm-1", Resource{FirmID: "firm-1"}, auth.CategoryCases, auth.ActionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, http.StatusUnauthorized, d.Status)
	assert.Equal(t, auth.ReasonUnauthenticated, d.Reason)
}
