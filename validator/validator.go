package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridoystarlord/bookingsdb/generator"
	"github.com/ridoystarlord/bookingsdb/introspect"
	"github.com/ridoystarlord/bookingsdb/migrations"
	"github.com/ridoystarlord/bookingsdb/schema"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Type      string `json:"type"`
	Migration string `json:"migration,omitempty"`
	Table     string `json:"table,omitempty"`
	Column    string `json:"column,omitempty"`
	Message   string `json:"message"`
	Severity  string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
}

func (r *ValidationResult) add(e ValidationError) {
	switch e.Severity {
	case "error":
		r.Errors = append(r.Errors, e)
	case "warning":
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
	r.Valid = len(r.Errors) == 0
}

var reservedKeywords = []string{"user", "order", "group", "table", "index", "view", "schema"}

// ValidateMigrations checks the registered migrations without a database:
// identifiers, ordering tokens, renderability and that every Down undoes its Up.
func ValidateMigrations(ms []migrations.Migration) *ValidationResult {
	result := newResult()
	seen := map[string]bool{}

	for _, m := range ms {
		name := m.FullName()
		if err := validateID(m.ID); err != nil {
			result.add(ValidationError{Type: "migration_id", Migration: name, Message: err.Error(), Severity: "error"})
		} else if seen[m.ID] {
			result.add(ValidationError{Type: "migration_id", Migration: name, Message: fmt.Sprintf("duplicate migration id %s", m.ID), Severity: "error"})
		}
		seen[m.ID] = true

		if m.Name == "" {
			result.add(ValidationError{Type: "migration_name", Migration: name, Message: "migration name cannot be empty", Severity: "error"})
		}
		if len(m.Up) == 0 {
			result.add(ValidationError{Type: "empty_migration", Migration: name, Message: "migration has no forward changes", Severity: "error"})
		}

		validateChanges(name, m.Up, result)
		validateChanges(name, m.Down, result)

		inverse, err := schema.Invert(m.Up)
		if err != nil {
			result.add(ValidationError{Type: "rollback", Migration: name, Message: err.Error(), Severity: "error"})
		} else if !schema.Equal(inverse, m.Down) {
			result.add(ValidationError{
				Type:      "rollback",
				Migration: name,
				Message:   "down changes are not the exact inverse of up changes",
				Severity:  "error",
			})
		}
	}

	result.add(ValidationError{Type: "summary", Message: fmt.Sprintf("%d migration(s) checked", len(ms)), Severity: "info"})
	return result
}

func validateChanges(migration string, changes []schema.Change, result *ValidationResult) {
	for _, c := range changes {
		if err := validateIdentifier("table", c.Table); err != nil {
			result.add(ValidationError{Type: "table_name", Migration: migration, Table: c.Table, Message: err.Error(), Severity: "error"})
		}
		if err := validateIdentifier("column", c.Column.Name); err != nil {
			result.add(ValidationError{Type: "column_name", Migration: migration, Table: c.Table, Column: c.Column.Name, Message: err.Error(), Severity: "error"})
		}
		if isReservedKeyword(c.Table) {
			result.add(ValidationError{
				Type:      "reserved_keyword",
				Migration: migration,
				Table:     c.Table,
				Message:   fmt.Sprintf("table name '%s' is a reserved keyword and must stay quoted", c.Table),
				Severity:  "warning",
			})
		}
		if _, err := generator.Statement(c); err != nil {
			result.add(ValidationError{Type: "statement", Migration: migration, Table: c.Table, Column: c.Column.Name, Message: err.Error(), Severity: "error"})
		}
		if c.Kind == schema.AddColumn && !c.Column.Nullable && c.Column.Default == nil {
			result.add(ValidationError{
				Type:      "not_null_without_default",
				Migration: migration,
				Table:     c.Table,
				Column:    c.Column.Name,
				Message:   "NOT NULL column without a default fails on tables that already have rows",
				Severity:  "warning",
			})
		}
	}
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("migration id cannot be empty")
	}
	for _, char := range id {
		if char < '0' || char > '9' {
			return fmt.Errorf("migration id '%s' must be numeric so it sorts by time", id)
		}
	}
	return nil
}

func validateIdentifier(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}

	if len(name) > 63 {
		return fmt.Errorf("%s name '%s' is too long (max 63 characters)", kind, name)
	}

	// Check for valid characters (PostgreSQL identifier rules)
	for i, char := range name {
		if i == 0 && char >= '0' && char <= '9' {
			return fmt.Errorf("%s name '%s' cannot start with a digit", kind, name)
		}
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return fmt.Errorf("%s name '%s' contains invalid character '%c'", kind, name, char)
		}
	}

	return nil
}

func isReservedKeyword(name string) bool {
	for _, keyword := range reservedKeywords {
		if strings.ToLower(name) == keyword {
			return true
		}
	}
	return false
}

// SchemaValidator checks applied migrations against the live schema.
type SchemaValidator struct {
	db introspect.Querier
}

func NewSchemaValidator(db introspect.Querier) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// Verify checks that every column added by the applied migrations exists
// with its declared definition, and that every column they drop is absent.
// Migrations are replayed in order so a later drop supersedes an earlier add.
func (v *SchemaValidator) Verify(ctx context.Context, applied []migrations.Migration) (*ValidationResult, error) {
	result := newResult()

	type key struct{ table, column string }
	expected := map[key]schema.Change{}
	owner := map[key]string{}
	var order []key
	for _, m := range applied {
		for _, c := range m.Up {
			k := key{c.Table, c.Column.Name}
			if _, ok := expected[k]; !ok {
				order = append(order, k)
			}
			expected[k] = c
			owner[k] = m.FullName()
		}
	}

	cache := map[string][]introspect.ExistingColumn{}
	for _, k := range order {
		cols, ok := cache[k.table]
		if !ok {
			var err error
			cols, err = introspect.Columns(ctx, v.db, k.table)
			if err != nil {
				return nil, fmt.Errorf("failed to inspect table %s: %w", k.table, err)
			}
			cache[k.table] = cols
		}

		c := expected[k]
		live, found := introspect.Find(cols, k.column)
		switch {
		case c.Kind == schema.AddColumn && !found:
			result.add(ValidationError{Type: "missing_column", Migration: owner[k], Table: k.table, Column: k.column,
				Message: fmt.Sprintf("column %s.%s is missing", k.table, k.column), Severity: "error"})
		case c.Kind == schema.AddColumn:
			if ok, reason := introspect.Matches(c.Column, live); !ok {
				result.add(ValidationError{Type: "column_mismatch", Migration: owner[k], Table: k.table, Column: k.column,
					Message: fmt.Sprintf("column %s.%s: %s", k.table, k.column, reason), Severity: "error"})
			}
		case c.Kind == schema.DropColumn && found:
			result.add(ValidationError{Type: "unexpected_column", Migration: owner[k], Table: k.table, Column: k.column,
				Message: fmt.Sprintf("column %s.%s should have been dropped", k.table, k.column), Severity: "error"})
		}
	}

	result.add(ValidationError{Type: "summary", Message: fmt.Sprintf("%d column(s) verified", len(order)), Severity: "info"})
	return result, nil
}
