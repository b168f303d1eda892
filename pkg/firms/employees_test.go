package firms

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambersapp/chambers/pkg/auth"
)

func TestAddEmployee_SeedsRoleDefaultMatrix(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan FROM firms WHERE id = \\$1 AND is_active = true FOR UPDATE").
		WithArgs("firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan"}).AddRow("basic"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM identities WHERE owner_id").
		WithArgs("firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO identities").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))
	mock.ExpectCommit()

	ident, err := service.AddEmployee(context.Background(), "firm-1", AddEmployeeRequest{
		Email: "lawyer@firm.test",
		Role:  auth.RoleLawyer,
	})
	require.NoError(t, err)
	require.NotNil(t, ident)

	assert.Equal(t, auth.AccountEmployee, ident.AccountType)
	require.NotNil(t, ident.OwnerID)
	assert.Equal(t, "firm-1", *ident.OwnerID)
	assert.Equal(t, auth.DefaultMatrix(auth.RoleLawyer, auth.AccountEmployee), ident.Permissions)
	assert.True(t, ident.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddEmployee_RejectsUnknownRole(t *testing.T) {
	service, _ := newMockService(t)

	_, err := service.AddEmployee(context.Background(), "firm-1", AddEmployeeRequest{
		Email: "x@firm.test",
		Role:  auth.Role("intern"),
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAddEmployee_DeniedAtSeatLimit(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT plan FROM firms WHERE id = \\$1 AND is_active = true FOR UPDATE").
		WithArgs("firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"plan"}).AddRow("free"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM identities WHERE owner_id").
		WithArgs("firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectRollback()

	_, err := service.AddEmployee(context.Background(), "firm-1", AddEmployeeRequest{
		Email: "x@firm.test",
		Role:  auth.RoleSecretary,
	})
	require.Error(t, err)
	assert.True(t, IsQuotaExceeded(err))
}

func TestUpdateEmployeeRole_ResetsMatrixToNewDefault(t *testing.T) {
	service, mock := newMockService(t)

	expected, err := json.Marshal(auth.DefaultMatrix(auth.RoleParalegal, auth.AccountEmployee))
	require.NoError(t, err)

	mock.ExpectExec("UPDATE identities").
		WithArgs("paralegal", expected, "emp-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = service.UpdateEmployeeRole(context.Background(), "firm-1", "emp-1", auth.RoleParalegal)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmployeeRole_ScopedToFirm(t *testing.T) {
	service, mock := newMockService(t)

	// The UPDATE carries the firm in its WHERE clause, so an employee of a
	// different firm matches no rows.
	mock.ExpectExec("UPDATE identities").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.UpdateEmployeeRole(context.Background(), "firm-1", "other-firms-emp", auth.RoleLawyer)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestUpdateEmployeeRole_RejectsUnknownRole(t *testing.T) {
	service, _ := newMockService(t)

	err := service.UpdateEmployeeRole(context.Background(), "firm-1", "emp-1", auth.Role("wizard"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestUpdateEmployeePermissions_NormalizesBeforeStore(t *testing.T) {
	service, mock := newMockService(t)

	// A sparse matrix with an out-of-shape entry comes back total, with
	// the junk dropped.
	custom := auth.PermissionMatrix{
		auth.CategoryCases:       {auth.ActionView: true, "teleport": true},
		auth.Category("unknown"): {auth.ActionView: true},
	}
	want := auth.EmptyMatrix()
	want.Grant(auth.CategoryCases, auth.ActionView)
	expected, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE identities").
		WithArgs(expected, "emp-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = service.UpdateEmployeePermissions(context.Background(), "firm-1", "emp-1", custom)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateEmployee(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectExec("UPDATE identities").
		WithArgs("emp-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.DeactivateEmployee(context.Background(), "firm-1", "emp-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEmployees(t *testing.T) {
	service, mock := newMockService(t)

	perms, err := json.Marshal(auth.DefaultMatrix(auth.RoleLawyer, auth.AccountEmployee))
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "email", "account_type", "owner_id", "role", "department",
		"permissions", "is_active", "created_at", "updated_at",
	}).AddRow(
		"emp-1", "a@firm.test", "employee", "firm-1", "lawyer", "litigation",
		perms, true, time.Now(), time.Now(),
	).AddRow(
		"emp-2", "b@firm.test", "employee", "firm-1", "secretary", nil,
		[]byte(`{}`), false, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM identities").
		WithArgs("firm-1").
		WillReturnRows(rows)

	employees, err := service.ListEmployees(context.Background(), "firm-1")
	require.NoError(t, err)
	require.Len(t, employees, 2)

	assert.Equal(t, auth.RoleLawyer, employees[0].Role)
	assert.True(t, employees[0].Permissions.Has(auth.CategoryCases, auth.ActionView))
	assert.False(t, employees[1].IsActive)
	assert.Equal(t, auth.EmptyMatrix(), employees[1].Permissions)
}
