package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatrix_Deterministic(t *testing.T) {
	roles := []Role{RoleAdmin, RoleLawyer, RoleParalegal, RoleSecretary, RoleAccountant}
	for _, role := range roles {
		first := DefaultMatrix(role, AccountEmployee)
		second := DefaultMatrix(role, AccountEmployee)
		assert.Equal(t, first, second, "matrix for role %q must be deterministic", role)
	}
}

func TestDefaultMatrix_Total(t *testing.T) {
	m := DefaultMatrix(RoleLawyer, AccountEmployee)
	for cat, actions := range CategoryActions {
		require.Contains(t, m, cat)
		for _, a := range actions {
			_, ok := m[cat][a]
			assert.True(t, ok, "matrix must carry an entry for %s.%s", cat, a)
		}
	}
}

func TestDefaultMatrix_UnknownRoleFailsClosed(t *testing.T) {
	for _, role := range []Role{"", "superadmin", "LAWYER", "intern"} {
		m := DefaultMatrix(role, AccountEmployee)
		for cat, actions := range m {
			for a, granted := range actions {
				assert.False(t, granted, "unknown role %q must not grant %s.%s", role, cat, a)
			}
		}
	}
}

func TestDefaultMatrix_OwnerGetsFullMatrix(t *testing.T) {
	// Account type owner dominates the role, even an unknown one.
	m := DefaultMatrix("not-a-role", AccountOwner)
	for cat, actions := range m {
		for a, granted := range actions {
			assert.True(t, granted, "owner must be granted %s.%s", cat, a)
		}
	}
}

func TestDefaultMatrix_RoleGrants(t *testing.T) {
	tests := []struct {
		role    Role
		cat     Category
		action  string
		granted bool
	}{
		{RoleLawyer, CategoryCases, ActionCreate, true},
		{RoleLawyer, CategoryCases, ActionDelete, false},
		{RoleLawyer, CategoryCases, ActionViewAll, false},
		{RoleLawyer, CategoryFirmSettings, ActionEdit, false},
		{RoleParalegal, CategoryCases, ActionView, true},
		{RoleParalegal, CategoryCases, ActionCreate, false},
		{RoleSecretary, CategoryAppointments, ActionDelete, true},
		{RoleSecretary, CategoryCases, ActionView, false},
		{RoleAccountant, CategoryFinancial, ActionExport, true},
		{RoleAccountant, CategoryCases, ActionView, false},
		{RoleAdmin, CategoryCases, ActionViewAll, true},
		{RoleAdmin, CategoryFirmSettings, ActionEdit, false},
		{RoleAdmin, CategoryFinancial, ActionView, true},
	}

	for _, tt := range tests {
		m := DefaultMatrix(tt.role, AccountEmployee)
		assert.Equal(t, tt.granted, m.Has(tt.cat, tt.action),
			"%s: %s.%s", tt.role, tt.cat, tt.action)
	}
}

func TestPermissionMatrix_Has(t *testing.T) {
	m := EmptyMatrix()
	assert.False(t, m.Has(CategoryCases, ActionView))

	m.Grant(CategoryCases, ActionView)
	assert.True(t, m.Has(CategoryCases, ActionView))

	m.Revoke(CategoryCases, ActionView)
	assert.False(t, m.Has(CategoryCases, ActionView))

	// Missing category and unknown action are false, never a panic.
	assert.False(t, m.Has("nonexistent", ActionView))
	assert.False(t, m.Has(CategoryCases, "frobnicate"))
}

func TestPermissionMatrix_GrantIgnoresUnknownPairs(t *testing.T) {
	m := EmptyMatrix()
	m.Grant("nonexistent", ActionView)
	m.Grant(CategoryAppointments, ActionViewAll) // not in the appointments shape

	assert.False(t, m.Has("nonexistent", ActionView))
	assert.False(t, m.Has(CategoryAppointments, ActionViewAll))
}

func TestPermissionMatrix_Clone(t *testing.T) {
	m := DefaultMatrix(RoleLawyer, AccountEmployee)
	clone := m.Clone()
	clone.Revoke(CategoryCases, ActionCreate)

	assert.True(t, m.Has(CategoryCases, ActionCreate), "clone must not alias the original")
	assert.False(t, clone.Has(CategoryCases, ActionCreate))
}

func TestNormalizePermissions_Nested(t *testing.T) {
	raw := []byte(`{"cases":{"view":true,"edit":false},"clients":{"view":true}}`)
	m := NormalizePermissions(raw)

	assert.True(t, m.Has(CategoryCases, ActionView))
	assert.False(t, m.Has(CategoryCases, ActionEdit))
	assert.True(t, m.Has(CategoryClients, ActionView))
	assert.False(t, m.Has(CategoryCases, ActionDelete))
}

func TestNormalizePermissions_FlatMap(t *testing.T) {
	raw := []byte(`{"cases.view":true,"cases.edit":true,"clients.view":false}`)
	m := NormalizePermissions(raw)

	assert.True(t, m.Has(CategoryCases, ActionView))
	assert.True(t, m.Has(CategoryCases, ActionEdit))
	assert.False(t, m.Has(CategoryClients, ActionView))
}

func TestNormalizePermissions_FlatSet(t *testing.T) {
	raw := []byte(`["cases.view","documents.upload"]`)
	m := NormalizePermissions(raw)

	assert.True(t, m.Has(CategoryCases, ActionView))
	assert.True(t, m.Has(CategoryDocuments, ActionUpload))
	assert.False(t, m.Has(CategoryCases, ActionEdit))
}

func TestNormalizePermissions_GarbageFailsClosed(t *testing.T) {
	for _, raw := range [][]byte{nil, {}, []byte(`"cases.view"`), []byte(`{broken`), []byte(`42`)} {
		m := NormalizePermissions(raw)
		assert.Empty(t, m.Flatten(), "garbage input %q must yield the all-false matrix", raw)
	}
}

func TestNormalizePermissions_DropsUnknownEntries(t *testing.T) {
	raw := []byte(`{"cases":{"view":true,"launch":true},"rockets":{"launch":true}}`)
	m := NormalizePermissions(raw)

	assert.Equal(t, []string{"cases.view"}, m.Flatten())
}

func TestFlatten_Sorted(t *testing.T) {
	m := EmptyMatrix()
	m.Grant(CategoryReports, ActionView)
	m.Grant(CategoryCases, ActionView)
	m.Grant(CategoryCases, ActionCreate)

	assert.Equal(t, []string{"cases.create", "cases.view", "reports.view"}, m.Flatten())
}
