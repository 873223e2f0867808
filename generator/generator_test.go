package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/bookingsdb/schema"
)

func TestStatement(t *testing.T) {
	tests := []struct {
		name   string
		change schema.Change
		want   string
	}{
		{
			name:   "numeric not null with default",
			change: schema.Add("bookings", schema.Numeric("totalAmount", 10, 2).WithDefault("0")),
			want:   `ALTER TABLE "bookings" ADD "totalAmount" NUMERIC(10,2) NOT NULL DEFAULT 0`,
		},
		{
			name:   "timestamp default now",
			change: schema.Add("bookings", schema.Timestamp("updatedAt").WithDefault("now()")),
			want:   `ALTER TABLE "bookings" ADD "updatedAt" TIMESTAMP NOT NULL DEFAULT now()`,
		},
		{
			name:   "nullable varchar",
			change: schema.Add("events", schema.Varchar("location", 255).Null()),
			want:   `ALTER TABLE "events" ADD "location" VARCHAR(255)`,
		},
		{
			name:   "drop ignores definition",
			change: schema.Drop("events", schema.Varchar("location", 255).Null()),
			want:   `ALTER TABLE "events" DROP COLUMN "location"`,
		},
		{
			name:   "quote escaping",
			change: schema.Drop(`we"ird`, schema.Timestamp("c")),
			want:   `ALTER TABLE "we""ird" DROP COLUMN "c"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Statement(tt.change)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatementErrors(t *testing.T) {
	tests := []struct {
		name   string
		change schema.Change
	}{
		{"empty table", schema.Add("", schema.Timestamp("c"))},
		{"empty column", schema.Add("t", schema.Timestamp(""))},
		{"unknown kind", schema.Change{Kind: "RENAME_COLUMN", Table: "t", Column: schema.Timestamp("c")}},
		{"unknown type", schema.Add("t", schema.Column{Name: "c", Type: "JSONB"})},
		{"bad scale", schema.Add("t", schema.Numeric("c", 4, 6))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Statement(tt.change)
			require.Error(t, err)
		})
	}
}

func TestStatementsKeepsOrder(t *testing.T) {
	stmts, err := Statements([]schema.Change{
		schema.Drop("events", schema.Timestamp("b")),
		schema.Drop("bookings", schema.Timestamp("a")),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "events" DROP COLUMN "b"`,
		`ALTER TABLE "bookings" DROP COLUMN "a"`,
	}, stmts)
}

func TestStatementsWrapsError(t *testing.T) {
	_, err := Statements([]schema.Change{schema.Add("t", schema.Column{Name: "c"})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADD_COLUMN t.c")
}
