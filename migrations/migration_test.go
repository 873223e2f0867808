package migrations

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/bookingsdb/schema"
)

var (
	applySQL = []string{
		`ALTER TABLE "bookings" ADD "totalAmount" NUMERIC(10,2) NOT NULL DEFAULT 0`,
		`ALTER TABLE "bookings" ADD "updatedAt" TIMESTAMP NOT NULL DEFAULT now()`,
		`ALTER TABLE "events" ADD "price" NUMERIC(10,2) NOT NULL DEFAULT 0`,
		`ALTER TABLE "events" ADD "location" VARCHAR(255)`,
	}
	revertSQL = []string{
		`ALTER TABLE "events" DROP COLUMN "location"`,
		`ALTER TABLE "events" DROP COLUMN "price"`,
		`ALTER TABLE "bookings" DROP COLUMN "updatedAt"`,
		`ALTER TABLE "bookings" DROP COLUMN "totalAmount"`,
	}
)

func newMock(t *testing.T) (sqlmock.Sqlmock, Executor) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, db
}

func TestAddBookingTotalsAndEventDetails_Apply(t *testing.T) {
	mock, db := newMock(t)
	for _, stmt := range applySQL {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, AddBookingTotalsAndEventDetails.Apply(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBookingTotalsAndEventDetails_Revert(t *testing.T) {
	mock, db := newMock(t)
	for _, stmt := range revertSQL {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, AddBookingTotalsAndEventDetails.Revert(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	mock, db := newMock(t)
	dupErr := &pgconn.PgError{Code: "42701", Message: `column "updatedAt" of relation "bookings" already exists`}
	mock.ExpectExec(applySQL[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(applySQL[1]).WillReturnError(dupErr)

	err := AddBookingTotalsAndEventDetails.Apply(context.Background(), db)
	require.Error(t, err)
	// the driver error is returned as-is
	assert.Same(t, dupErr, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevertStopsAtFirstFailure(t *testing.T) {
	mock, db := newMock(t)
	undefined := &pgconn.PgError{Code: "42703", Message: `column "location" of relation "events" does not exist`}
	mock.ExpectExec(revertSQL[0]).WillReturnError(undefined)

	err := AddBookingTotalsAndEventDetails.Revert(context.Background(), db)
	assert.Same(t, undefined, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBookingTotalsAndEventDetails_DownInvertsUp(t *testing.T) {
	m := AddBookingTotalsAndEventDetails
	inv, err := schema.Invert(m.Up)
	require.NoError(t, err)
	assert.True(t, schema.Equal(inv, m.Down))
}

func TestAddBookingTotalsAndEventDetails_Statements(t *testing.T) {
	up, err := AddBookingTotalsAndEventDetails.Statements(Up)
	require.NoError(t, err)
	assert.Equal(t, applySQL, up)

	down, err := AddBookingTotalsAndEventDetails.Statements(Down)
	require.NoError(t, err)
	assert.Equal(t, revertSQL, down)

	_, err = AddBookingTotalsAndEventDetails.Statements("sideways")
	require.Error(t, err)
}

func TestAddBookingTotalsAndEventDetails_Registered(t *testing.T) {
	m, ok := Find("1717236000000")
	require.True(t, ok)
	assert.Equal(t, "1717236000000_AddBookingTotalsAndEventDetails", m.FullName())

	m, ok = Find("1717236000000_AddBookingTotalsAndEventDetails")
	require.True(t, ok)
	assert.Equal(t, []string{"bookings", "events"}, m.Tables())

	_, ok = Find("42")
	assert.False(t, ok)
}

func TestChecksumStable(t *testing.T) {
	a, err := AddBookingTotalsAndEventDetails.Checksum()
	require.NoError(t, err)
	b, err := AddBookingTotalsAndEventDetails.Checksum()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	changed := AddBookingTotalsAndEventDetails
	changed.Up = changed.Up[:3]
	c, err := changed.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSort(t *testing.T) {
	ms := []Migration{{ID: "1000"}, {ID: "20"}, {ID: "999"}, {ID: "100"}}
	Sort(ms)
	var ids []string
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"20", "100", "999", "1000"}, ids)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register(Migration{ID: AddBookingTotalsAndEventDetails.ID}) })
}

func TestAllSorted(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		if len(all[i-1].ID) == len(all[i].ID) {
			assert.Less(t, all[i-1].ID, all[i].ID)
		} else {
			assert.Less(t, len(all[i-1].ID), len(all[i].ID))
		}
	}
}
