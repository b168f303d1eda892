package firms

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chambersapp/chambers/pkg/auth"
)

func TestGetFirm(t *testing.T) {
	service, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{
		"id", "name", "plan", "settings", "is_active", "created_at", "updated_at",
	}).AddRow(
		"firm-1", "Smith & Partners", "professional", []byte(`{"locale":"en"}`),
		true, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM firms WHERE id").
		WithArgs("firm-1").
		WillReturnRows(rows)

	firm, err := service.GetFirm(context.Background(), "firm-1")
	require.NoError(t, err)
	assert.Equal(t, "Smith & Partners", firm.Name)
	assert.Equal(t, PlanProfessional, firm.Plan)
	assert.Equal(t, "en", firm.Settings["locale"])
}

func TestGetFirm_NotFound(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM firms WHERE id").
		WithArgs("firm-x").
		WillReturnError(sql.ErrNoRows)

	_, err := service.GetFirm(context.Background(), "firm-x")
	assert.ErrorIs(t, err, ErrFirmNotFound)
}

func TestGetIdentity_NormalizesNestedPermissions(t *testing.T) {
	service, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{
		"id", "email", "account_type", "owner_id", "role", "department",
		"permissions", "is_active", "created_at", "updated_at",
	}).AddRow(
		"emp-1", "a@firm.test", "employee", "firm-1", "lawyer", "litigation",
		[]byte(`{"cases":{"view":true,"edit":true}}`), true, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM identities WHERE id").
		WithArgs("emp-1").
		WillReturnRows(rows)

	ident, err := service.GetIdentity(context.Background(), "emp-1")
	require.NoError(t, err)

	assert.True(t, ident.Permissions.Has(auth.CategoryCases, auth.ActionView))
	assert.True(t, ident.Permissions.Has(auth.CategoryCases, auth.ActionEdit))
	assert.False(t, ident.Permissions.Has(auth.CategoryCases, auth.ActionDelete))
	require.NotNil(t, ident.OwnerID)
	assert.Equal(t, "firm-1", *ident.OwnerID)
}

func TestGetIdentity_NormalizesLegacyFlatPermissions(t *testing.T) {
	service, mock := newMockService(t)

	// Rows written before the nested shape became canonical store a flat
	// "category.action" set; they must come back as the same matrix.
	rows := sqlmock.NewRows([]string{
		"id", "email", "account_type", "owner_id", "role", "department",
		"permissions", "is_active", "created_at", "updated_at",
	}).AddRow(
		"emp-1", "a@firm.test", "employee", "firm-1", "paralegal", nil,
		[]byte(`["cases.view","documents.upload"]`), true, time.Now(), time.Now(),
	)
	mock.ExpectQuery("SELECT (.+) FROM identities WHERE id").
		WithArgs("emp-1").
		WillReturnRows(rows)

	ident, err := service.GetIdentity(context.Background(), "emp-1")
	require.NoError(t, err)

	assert.True(t, ident.Permissions.Has(auth.CategoryCases, auth.ActionView))
	assert.True(t, ident.Permissions.Has(auth.CategoryDocuments, auth.ActionUpload))
	assert.False(t, ident.Permissions.Has(auth.CategoryCases, auth.ActionEdit))
}

func TestGetIdentity_NotFound(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM identities WHERE id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := service.GetIdentity(context.Background(), "ghost")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestUpdatePlan(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectExec("UPDATE firms SET plan").
		WithArgs("enterprise", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.UpdatePlan(context.Background(), "firm-1", PlanEnterprise)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePlan_FirmNotFound(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectExec("UPDATE firms SET plan").
		WithArgs("basic", "firm-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.UpdatePlan(context.Background(), "firm-x", PlanBasic)
	assert.ErrorIs(t, err, ErrFirmNotFound)
}

func TestGetUsage(t *testing.T) {
	service, mock := newMockService(t)

	mock.ExpectQuery("SELECT").
		WithArgs("firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"cases", "employees", "clients", "now"}).
			AddRow(int64(12), int64(4), int64(30), time.Now()))

	usage, err := service.GetUsage(context.Background(), "firm-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), usage.CasesCount)
	assert.Equal(t, int64(4), usage.EmployeeCount)
	assert.Equal(t, int64(30), usage.ClientsCount)
}
