package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/bookingsdb/schema"
)

// Statements converts a list of changes into PostgreSQL statements, one per change,
// preserving order.
func Statements(changes []schema.Change) ([]string, error) {
	var sqlStatements []string

	for _, c := range changes {
		stmt, err := Statement(c)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", c, err)
		}
		sqlStatements = append(sqlStatements, stmt)
	}

	return sqlStatements, nil
}

// Statement renders a single change.
func Statement(c schema.Change) (string, error) {
	if c.Table == "" {
		return "", fmt.Errorf("table name is empty")
	}
	if c.Column.Name == "" {
		return "", fmt.Errorf("column name is empty")
	}

	switch c.Kind {
	case schema.AddColumn:
		typ, err := ColumnType(c.Column)
		if err != nil {
			return "", err
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD %s %s`,
			QuoteIdent(c.Table),
			QuoteIdent(c.Column.Name),
			typ,
		)
		if !c.Column.Nullable {
			stmt += " NOT NULL"
		}
		if c.Column.Default != nil {
			stmt += fmt.Sprintf(" DEFAULT %s", *c.Column.Default)
		}
		return stmt, nil

	case schema.DropColumn:
		return fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`,
			QuoteIdent(c.Table),
			QuoteIdent(c.Column.Name),
		), nil

	default:
		return "", fmt.Errorf("unsupported change: %s", c.Kind)
	}
}

// ColumnType renders the SQL type of col, including precision or length.
func ColumnType(col schema.Column) (string, error) {
	switch col.Type {
	case schema.NumericType:
		if col.Precision <= 0 {
			return "NUMERIC", nil
		}
		if col.Scale < 0 || col.Scale > col.Precision {
			return "", fmt.Errorf("invalid scale %d for precision %d", col.Scale, col.Precision)
		}
		return fmt.Sprintf("NUMERIC(%d,%d)", col.Precision, col.Scale), nil
	case schema.TimestampType:
		return "TIMESTAMP", nil
	case schema.VarcharType:
		if col.Length <= 0 {
			return "VARCHAR", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", col.Length), nil
	default:
		return "", fmt.Errorf("unsupported column type %q", col.Type)
	}
}

// QuoteIdent double-quotes an identifier so mixed-case names like totalAmount
// are not folded to lower case.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
