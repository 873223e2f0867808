package generator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/bookingsdb/schema"
)

func TestParseAddColumn(t *testing.T) {
	c, err := ParseAddColumn("events.capacity:numeric(10, 0):default=0")
	require.NoError(t, err)
	assert.True(t, c.Equal(schema.Add("events", schema.Numeric("capacity", 10, 0).WithDefault("0"))))

	c, err = ParseAddColumn("bookings.note:VARCHAR(120):null")
	require.NoError(t, err)
	assert.True(t, c.Equal(schema.Add("bookings", schema.Varchar("note", 120).Null())))

	c, err = ParseAddColumn("events.startsAt:timestamp:default=now()")
	require.NoError(t, err)
	assert.True(t, c.Equal(schema.Add("events", schema.Timestamp("startsAt").WithDefault("now()"))))

	c, err = ParseAddColumn("events.venue:varchar(80):null:default='n/a'::character varying")
	require.NoError(t, err)
	assert.True(t, c.Equal(schema.Add("events", schema.Varchar("venue", 80).Null().WithDefault("'n/a'::character varying"))))

	c, err = ParseAddColumn("events.code:varchar(8):default='a:b'")
	require.NoError(t, err)
	assert.Equal(t, "'a:b'", *c.Column.Default)
	assert.False(t, c.Column.Nullable)

	for _, bad := range []string{
		"events",
		"events.x",
		"nodot:timestamp",
		"events.x:jsonb",
		"events.x:timestamp:unique",
		"events.x:varchar(10,2)",
		"events.x:varchar",
		"events.x:timestamp(3)",
		"events.x:timestamp:default=",
	} {
		_, err := ParseAddColumn(bad)
		assert.Error(t, err, bad)
	}
}

func TestRenderMigration(t *testing.T) {
	src, err := RenderMigration("1717236000001", "AddEventCapacity", []schema.Change{
		schema.Add("events", schema.Numeric("capacity", 10, 0).WithDefault("0")),
		schema.Add("events", schema.Varchar("venue", 80).Null()),
	})
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, `ID:   "1717236000001",`)
	assert.Contains(t, out, `schema.Add("events", schema.Numeric("capacity", 10, 0).WithDefault("0")),`)
	assert.Contains(t, out, `schema.Drop("events", schema.Varchar("venue", 80).Null()),`)
	assert.Less(t,
		strings.Index(out, `schema.Drop("events", schema.Varchar("venue"`),
		strings.Index(out, `schema.Drop("events", schema.Numeric("capacity"`))
}

func TestRenderMigrationRejectsDrops(t *testing.T) {
	_, err := RenderMigration("1", "X", []schema.Change{schema.Drop("events", schema.Timestamp("a"))})
	require.Error(t, err)
}

func TestWriteMigrationFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.UnixMilli(1717236000001)

	path, err := WriteMigrationFile(dir, "AddEventCapacity", []schema.Change{
		schema.Add("events", schema.Numeric("capacity", 10, 0).WithDefault("0")),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1717236000001_add_event_capacity.go"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Register(AddEventCapacity)")

	_, err = WriteMigrationFile(dir, "lowercase", nil, now)
	require.Error(t, err)
}
