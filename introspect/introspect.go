package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ridoystarlord/bookingsdb/schema"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type ExistingColumn struct {
	ColumnName    string
	DataType      string // information_schema data_type, e.g. "numeric"
	IsNullable    bool
	ColumnDefault *string
	Precision     *int
	Scale         *int
	MaxLength     *int
}

const columnsQuery = `
	SELECT
		column_name,
		data_type,
		(is_nullable = 'YES') AS is_nullable,
		column_default,
		numeric_precision,
		numeric_scale,
		character_maximum_length
	FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1
	ORDER BY ordinal_position`

// Columns returns the live columns of table in the current schema, in
// ordinal order. A missing table yields an empty slice.
func Columns(ctx context.Context, q Querier, table string) ([]ExistingColumn, error) {
	rows, err := q.QueryContext(ctx, columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var columns []ExistingColumn
	for rows.Next() {
		var (
			col                       ExistingColumn
			def                       sql.NullString
			precision, scale, maxLen sql.NullInt64
		)
		if err := rows.Scan(
			&col.ColumnName,
			&col.DataType,
			&col.IsNullable,
			&def,
			&precision,
			&scale,
			&maxLen,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		if def.Valid {
			col.ColumnDefault = &def.String
		}
		col.Precision = intPtr(precision)
		col.Scale = intPtr(scale)
		col.MaxLength = intPtr(maxLen)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}

	return columns, nil
}

// Snapshot returns the columns of each table keyed by table name.
func Snapshot(ctx context.Context, q Querier, tables ...string) (map[string][]ExistingColumn, error) {
	out := make(map[string][]ExistingColumn, len(tables))
	for _, table := range tables {
		cols, err := Columns(ctx, q, table)
		if err != nil {
			return nil, fmt.Errorf("getting columns for table %s: %w", table, err)
		}
		out[table] = cols
	}
	return out, nil
}

// Find returns the column named name, if present.
func Find(cols []ExistingColumn, name string) (ExistingColumn, bool) {
	for _, c := range cols {
		if c.ColumnName == name {
			return c, true
		}
	}
	return ExistingColumn{}, false
}

// Matches reports whether the live column has the type, nullability and
// default that want declares. It returns a description of the first mismatch.
func Matches(want schema.Column, got ExistingColumn) (bool, string) {
	if want.Name != got.ColumnName {
		return false, fmt.Sprintf("name %q != %q", got.ColumnName, want.Name)
	}

	switch want.Type {
	case schema.NumericType:
		if got.DataType != "numeric" {
			return false, fmt.Sprintf("type %s, want numeric", got.DataType)
		}
		if want.Precision > 0 {
			if !intEq(got.Precision, want.Precision) || !intEq(got.Scale, want.Scale) {
				return false, fmt.Sprintf("precision/scale %s,%s, want %d,%d",
					fmtInt(got.Precision), fmtInt(got.Scale), want.Precision, want.Scale)
			}
		}
	case schema.TimestampType:
		if got.DataType != "timestamp without time zone" {
			return false, fmt.Sprintf("type %s, want timestamp without time zone", got.DataType)
		}
	case schema.VarcharType:
		if got.DataType != "character varying" {
			return false, fmt.Sprintf("type %s, want character varying", got.DataType)
		}
		if want.Length > 0 && !intEq(got.MaxLength, want.Length) {
			return false, fmt.Sprintf("length %s, want %d", fmtInt(got.MaxLength), want.Length)
		}
	default:
		return false, fmt.Sprintf("unsupported column type %q", want.Type)
	}

	if want.Nullable != got.IsNullable {
		return false, fmt.Sprintf("nullable %t, want %t", got.IsNullable, want.Nullable)
	}

	switch {
	case want.Default == nil && got.ColumnDefault != nil:
		return false, fmt.Sprintf("unexpected default %s", *got.ColumnDefault)
	case want.Default != nil && got.ColumnDefault == nil:
		return false, fmt.Sprintf("missing default %s", *want.Default)
	case want.Default != nil && normalizeDefault(*got.ColumnDefault) != normalizeDefault(*want.Default):
		return false, fmt.Sprintf("default %s, want %s", *got.ColumnDefault, *want.Default)
	}

	return true, ""
}

// normalizeDefault strips the casts and quoting PostgreSQL adds when it
// stores a default, so "'0'::numeric" and "0" compare equal.
func normalizeDefault(expr string) string {
	expr = strings.TrimSpace(expr)
	if i := strings.Index(expr, "::"); i >= 0 {
		expr = expr[:i]
	}
	expr = strings.Trim(expr, "'()")
	return strings.ToLower(expr)
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func intEq(p *int, v int) bool {
	return p != nil && *p == v
}

func fmtInt(p *int) string {
	if p == nil {
		return "NULL"
	}
	return fmt.Sprint(*p)
}
