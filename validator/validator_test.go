package validator

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/bookingsdb/migrations"
	"github.com/ridoystarlord/bookingsdb/schema"
)

func types(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func TestValidateMigrations_Registered(t *testing.T) {
	result := ValidateMigrations(migrations.All())
	assert.True(t, result.Valid, "%+v", result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateMigrations_Problems(t *testing.T) {
	col := schema.Timestamp("startsAt")
	ms := []migrations.Migration{
		{
			ID:   "2",
			Name: "WrongDown",
			Up:   []schema.Change{schema.Add("events", col.WithDefault("now()"))},
			Down: []schema.Change{},
		},
		{
			ID:   "2",
			Name: "Duplicate",
			Up:   []schema.Change{schema.Add("order", col.WithDefault("now()"))},
			Down: []schema.Change{schema.Drop("order", col.WithDefault("now()"))},
		},
		{
			ID:   "abc",
			Name: "",
		},
		{
			ID:   "3",
			Name: "BadIdentifiers",
			Up:   []schema.Change{schema.Add("events", schema.Timestamp("bad-name"))},
			Down: []schema.Change{schema.Drop("events", schema.Timestamp("bad-name"))},
		},
	}

	result := ValidateMigrations(ms)
	assert.False(t, result.Valid)

	got := types(result.Errors)
	assert.Contains(t, got, "rollback")
	assert.Contains(t, got, "migration_id")
	assert.Contains(t, got, "migration_name")
	assert.Contains(t, got, "empty_migration")
	assert.Contains(t, got, "column_name")

	warnings := types(result.Warnings)
	assert.Contains(t, warnings, "reserved_keyword")
	assert.Contains(t, warnings, "not_null_without_default")
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, validateIdentifier("column", "totalAmount"))
	assert.Error(t, validateIdentifier("column", ""))
	assert.Error(t, validateIdentifier("column", "1st"))
	assert.Error(t, validateIdentifier("column", "has space"))
	assert.Error(t, validateIdentifier("table", string(make([]byte, 64))))
}

var columnNames = []string{
	"column_name", "data_type", "is_nullable", "column_default",
	"numeric_precision", "numeric_scale", "character_maximum_length",
}

func TestVerify(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := regexp.QuoteMeta("FROM information_schema.columns")
	mock.ExpectQuery(q).WithArgs("bookings").WillReturnRows(sqlmock.NewRows(columnNames).
		AddRow("id", "integer", false, nil, 32, 0, nil).
		AddRow("totalAmount", "numeric", false, "0", 10, 2, nil).
		AddRow("updatedAt", "timestamp without time zone", false, "now()", nil, nil, nil))
	mock.ExpectQuery(q).WithArgs("events").WillReturnRows(sqlmock.NewRows(columnNames).
		AddRow("id", "integer", false, nil, 32, 0, nil).
		AddRow("price", "numeric", true, "0", 10, 2, nil))

	result, err := NewSchemaValidator(db).Verify(context.Background(), []migrations.Migration{migrations.AddBookingTotalsAndEventDetails})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)

	assert.Equal(t, "column_mismatch", result.Errors[0].Type)
	assert.Equal(t, "price", result.Errors[0].Column)
	assert.Equal(t, "missing_column", result.Errors[1].Type)
	assert.Equal(t, "location", result.Errors[1].Column)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerify_LaterDropWins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	col := schema.Varchar("nickname", 20).Null()
	ms := []migrations.Migration{
		{ID: "1", Name: "Add", Up: []schema.Change{schema.Add("bookings", col)}},
		{ID: "2", Name: "Drop", Up: []schema.Change{schema.Drop("bookings", col)}},
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).WithArgs("bookings").
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow("nickname", "character varying", true, nil, nil, nil, 20))

	result, err := NewSchemaValidator(db).Verify(context.Background(), ms)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "unexpected_column", result.Errors[0].Type)
	assert.Equal(t, "2_Drop", result.Errors[0].Migration)
}
