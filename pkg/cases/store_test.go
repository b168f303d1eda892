package cases

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func caseRows(rows ...[]driverValue) *sqlmock.Rows {
	r := sqlmock.NewRows([]string{
		"id", "firm_id", "title", "description", "status",
		"assigned_to", "created_by", "created_at", "updated_at",
	})
	for _, row := range rows {
		r.AddRow(row...)
	}
	return r
}

type driverValue = driver.Value

func TestGetCase(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM cases WHERE id").
		WithArgs("case-1").
		WillReturnRows(caseRows([]driverValue{
			"case-1", "firm-1", "Estate of Marsh", "probate", "open",
			"emp-1", "owner-1", now, now,
		}))

	c, err := store.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, "firm-1", c.FirmID)
	assert.Equal(t, StatusOpen, c.Status)
	require.NotNil(t, c.AssignedTo)
	assert.Equal(t, "emp-1", *c.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCase_NullableFields(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM cases WHERE id").
		WithArgs("case-1").
		WillReturnRows(caseRows([]driverValue{
			"case-1", "firm-1", "Untitled", nil, "open", nil, "owner-1", now, now,
		}))

	c, err := store.GetCase(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Empty(t, c.Description)
	assert.Nil(t, c.AssignedTo)
}

func TestGetCase_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM cases WHERE id").
		WithArgs("missing").
		WillReturnRows(caseRows())

	_, err := store.GetCase(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestListVisibleCases_FiltersByRelationship(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM cases\\s+WHERE firm_id = \\$1 AND \\(created_by = \\$2 OR assigned_to = \\$2\\)").
		WithArgs("firm-1", "emp-1").
		WillReturnRows(caseRows(
			[]driverValue{"case-1", "firm-1", "Mine", nil, "open", nil, "emp-1", now, now},
			[]driverValue{"case-2", "firm-1", "Assigned", nil, "open", "emp-1", "owner-1", now, now},
		))

	list, err := store.ListVisibleCases(context.Background(), "firm-1", "emp-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTx_InsertsInsideTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cases").
		WithArgs("case-1", "firm-1", "Estate of Marsh", "probate", "open", nil, "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	tx, err := store.db.Begin()
	require.NoError(t, err)

	c := &Case{
		ID: "case-1", FirmID: "firm-1", Title: "Estate of Marsh",
		Description: "probate", Status: StatusOpen, CreatedBy: "owner-1",
	}
	require.NoError(t, store.CreateTx(tx, c))
	require.NoError(t, tx.Commit())

	assert.Equal(t, now, c.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCase_ScopedToFirm(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE cases SET title").
		WithArgs("New title", "desc", "closed", "case-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateCase(context.Background(), &Case{
		ID: "case-1", FirmID: "firm-1", Title: "New title",
		Description: "desc", Status: StatusClosed,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCase_WrongFirmTouchesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE cases SET title").
		WithArgs("x", "", "open", "case-1", "other-firm").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateCase(context.Background(), &Case{
		ID: "case-1", FirmID: "other-firm", Title: "x", Status: StatusOpen,
	})
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestAssignCase_ChecksFirmMembership(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("emp-1", "firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE cases SET assigned_to").
		WithArgs("emp-1", "case-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assignee := "emp-1"
	err := store.AssignCase(context.Background(), "firm-1", "case-1", &assignee)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignCase_RejectsOutsideAssignee(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("stranger", "firm-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	assignee := "stranger"
	err := store.AssignCase(context.Background(), "firm-1", "case-1", &assignee)
	assert.ErrorIs(t, err, ErrAssigneeNotInFirm)
}

func TestAssignCase_NilClearsWithoutMembershipCheck(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE cases SET assigned_to").
		WithArgs(nil, "case-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AssignCase(context.Background(), "firm-1", "case-1", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCase(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM cases WHERE id").
		WithArgs("case-1", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.DeleteCase(context.Background(), "firm-1", "case-1"))
}

func TestDeleteCase_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM cases WHERE id").
		WithArgs("missing", "firm-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteCase(context.Background(), "firm-1", "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}
