package schema

import "fmt"

type ColumnType string

const (
	NumericType   ColumnType = "NUMERIC"
	TimestampType ColumnType = "TIMESTAMP"
	VarcharType   ColumnType = "VARCHAR"
)

type Column struct {
	Name      string
	Type      ColumnType
	Precision int // NUMERIC only
	Scale     int // NUMERIC only
	Length    int // VARCHAR only
	Nullable  bool
	Default   *string // raw SQL expression, e.g. "0" or "now()"
}

// Numeric returns a NUMERIC(precision,scale) column.
func Numeric(name string, precision, scale int) Column {
	return Column{Name: name, Type: NumericType, Precision: precision, Scale: scale}
}

func Timestamp(name string) Column {
	return Column{Name: name, Type: TimestampType}
}

// Varchar returns a VARCHAR(length) column.
func Varchar(name string, length int) Column {
	return Column{Name: name, Type: VarcharType, Length: length}
}

// NotNull marks the column as NOT NULL.
func (c Column) NotNull() Column {
	c.Nullable = false
	return c
}

func (c Column) Null() Column {
	c.Nullable = true
	return c
}

// WithDefault sets the default expression. The value is emitted verbatim.
func (c Column) WithDefault(expr string) Column {
	c.Default = &expr
	return c
}

func (c Column) Equal(o Column) bool {
	if c.Name != o.Name || c.Type != o.Type || c.Nullable != o.Nullable {
		return false
	}
	if c.Precision != o.Precision || c.Scale != o.Scale || c.Length != o.Length {
		return false
	}
	if (c.Default == nil) != (o.Default == nil) {
		return false
	}
	return c.Default == nil || *c.Default == *o.Default
}

type ChangeKind string

const (
	AddColumn  ChangeKind = "ADD_COLUMN"
	DropColumn ChangeKind = "DROP_COLUMN"
)

// Change is a single structural alteration to a table. Drops carry the full
// column definition so they can be inverted; only Table and Column.Name are
// used when rendering a drop.
type Change struct {
	Kind   ChangeKind
	Table  string
	Column Column
}

func Add(table string, col Column) Change {
	return Change{Kind: AddColumn, Table: table, Column: col}
}

func Drop(table string, col Column) Change {
	return Change{Kind: DropColumn, Table: table, Column: col}
}

func (c Change) String() string {
	return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Column.Name)
}

// Inverse returns the change that undoes c.
func (c Change) Inverse() (Change, error) {
	switch c.Kind {
	case AddColumn:
		return Drop(c.Table, c.Column), nil
	case DropColumn:
		return Add(c.Table, c.Column), nil
	default:
		return Change{}, fmt.Errorf("no inverse for change kind %q", c.Kind)
	}
}

func (c Change) Equal(o Change) bool {
	return c.Kind == o.Kind && c.Table == o.Table && c.Column.Equal(o.Column)
}

// Invert returns the inverse of changes, last change first.
func Invert(changes []Change) ([]Change, error) {
	out := make([]Change, 0, len(changes))
	for i := len(changes) - 1; i >= 0; i-- {
		inv, err := changes[i].Inverse()
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func Equal(a, b []Change) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Tables lists the distinct tables touched by changes, in first-seen order.
func Tables(changes []Change) []string {
	seen := map[string]bool{}
	var tables []string
	for _, c := range changes {
		if !seen[c.Table] {
			seen[c.Table] = true
			tables = append(tables, c.Table)
		}
	}
	return tables
}
