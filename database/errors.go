package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the runner and CLI care about.
const (
	CodeDuplicateColumn = "42701"
	CodeUndefinedColumn = "42703"
	CodeUndefinedTable  = "42P01"
	CodeNotNullViolated = "23502"
)

// Code returns the SQLSTATE carried by err, or "" if err is not a server error.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsDuplicateColumn(err error) bool { return Code(err) == CodeDuplicateColumn }

func IsUndefinedColumn(err error) bool { return Code(err) == CodeUndefinedColumn }

func IsUndefinedTable(err error) bool { return Code(err) == CodeUndefinedTable }

// Hint returns a short operator-facing explanation for common schema errors.
func Hint(err error) string {
	switch Code(err) {
	case CodeDuplicateColumn:
		return "column already exists; the migration may already have been applied outside the runner"
	case CodeUndefinedColumn:
		return "column does not exist; the schema was changed outside the runner"
	case CodeUndefinedTable:
		return "table does not exist; check the database and search_path"
	case CodeNotNullViolated:
		return "existing rows violate a NOT NULL column without a usable default"
	default:
		return ""
	}
}
