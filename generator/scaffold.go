package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/ridoystarlord/bookingsdb/schema"
)

var typeSpec = regexp.MustCompile(`^(?i)(numeric|timestamp|varchar)(?:\((\d+)(?:,(\d+))?\))?$`)

// ParseAddColumn parses "table.column:type[:null][:default=expr]" into an
// add-column change, e.g. "events.capacity:numeric(10,0):default=0". The
// default option must come last and may itself contain colons, as in
// "default='n/a'::character varying".
func ParseAddColumn(s string) (schema.Change, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return schema.Change{}, fmt.Errorf("column spec %q: want table.column:type", s)
	}
	table, column, ok := strings.Cut(parts[0], ".")
	if !ok || table == "" || column == "" {
		return schema.Change{}, fmt.Errorf("column spec %q: want table.column", s)
	}

	col, err := parseType(column, parts[1])
	if err != nil {
		return schema.Change{}, fmt.Errorf("column spec %q: %w", s, err)
	}

	if len(parts) == 3 {
		rest := parts[2]
		for rest != "" {
			if expr, ok := strings.CutPrefix(rest, "default="); ok {
				if expr == "" {
					return schema.Change{}, fmt.Errorf("column spec %q: empty default", s)
				}
				col = col.WithDefault(expr)
				break
			}
			var opt string
			opt, rest, _ = strings.Cut(rest, ":")
			if opt != "null" {
				return schema.Change{}, fmt.Errorf("column spec %q: unknown option %q", s, opt)
			}
			col = col.Null()
		}
	}
	return schema.Add(table, col), nil
}

func parseType(column, spec string) (schema.Column, error) {
	m := typeSpec.FindStringSubmatch(strings.ReplaceAll(spec, " ", ""))
	if m == nil {
		return schema.Column{}, fmt.Errorf("unsupported type %q", spec)
	}
	switch strings.ToLower(m[1]) {
	case "numeric":
		p, _ := strconv.Atoi(m[2])
		sc, _ := strconv.Atoi(m[3])
		return schema.Numeric(column, p, sc), nil
	case "timestamp":
		if m[2] != "" {
			return schema.Column{}, fmt.Errorf("timestamp takes no arguments, got %q", spec)
		}
		return schema.Timestamp(column), nil
	default:
		if m[2] == "" || m[3] != "" {
			return schema.Column{}, fmt.Errorf("varchar needs a single length, got %q", spec)
		}
		n, _ := strconv.Atoi(m[2])
		return schema.Varchar(column, n), nil
	}
}

// MigrationID returns the millisecond timestamp token used as a migration ID.
func MigrationID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

var migrationTemplate = template.Must(template.New("migration").Funcs(template.FuncMap{
	"column": columnExpr,
}).Parse(`package migrations

import "github.com/ridoystarlord/bookingsdb/schema"

func init() {
	Register({{.Name}})
}

var {{.Name}} = Migration{
	ID:   "{{.ID}}",
	Name: "{{.Name}}",
	Up: []schema.Change{
{{- range .Up}}
		schema.Add({{printf "%q" .Table}}, {{column .Column}}),
{{- end}}
	},
	Down: []schema.Change{
{{- range .Down}}
		schema.Drop({{printf "%q" .Table}}, {{column .Column}}),
{{- end}}
	},
}
`))

func columnExpr(c schema.Column) string {
	var b strings.Builder
	switch c.Type {
	case schema.NumericType:
		fmt.Fprintf(&b, "schema.Numeric(%q, %d, %d)", c.Name, c.Precision, c.Scale)
	case schema.VarcharType:
		fmt.Fprintf(&b, "schema.Varchar(%q, %d)", c.Name, c.Length)
	default:
		fmt.Fprintf(&b, "schema.Timestamp(%q)", c.Name)
	}
	if c.Nullable {
		b.WriteString(".Null()")
	}
	if c.Default != nil {
		fmt.Fprintf(&b, ".WithDefault(%q)", *c.Default)
	}
	return b.String()
}

// RenderMigration produces the Go source of a migration adding up; the down
// side is derived by inverting it.
func RenderMigration(id, name string, up []schema.Change) ([]byte, error) {
	for _, c := range up {
		if c.Kind != schema.AddColumn {
			return nil, fmt.Errorf("scaffold supports add-column changes only, got %s", c)
		}
		if _, err := Statement(c); err != nil {
			return nil, fmt.Errorf("generate %s: %w", c, err)
		}
	}
	down, err := schema.Invert(up)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = migrationTemplate.Execute(&buf, struct {
		ID, Name string
		Up, Down []schema.Change
	}{id, name, up, down})
	if err != nil {
		return nil, fmt.Errorf("rendering migration: %w", err)
	}
	return format.Source(buf.Bytes())
}

// WriteMigrationFile writes a new migration into dir and returns its path.
func WriteMigrationFile(dir, name string, up []schema.Change, now time.Time) (string, error) {
	if !isExportedIdent(name) {
		return "", fmt.Errorf("migration name %q must be an exported Go identifier", name)
	}
	id := MigrationID(now)
	src, err := RenderMigration(id, name, up)
	if err != nil {
		return "", err
	}

	// Ensure migrations folder exists
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.go", id, snake(name)))
	if err := os.WriteFile(filename, src, 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return filename, nil
}

func isExportedIdent(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
