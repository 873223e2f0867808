package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvert(t *testing.T) {
	up := []Change{
		Add("bookings", Numeric("totalAmount", 10, 2).WithDefault("0")),
		Add("events", Varchar("location", 255).Null()),
	}

	down, err := Invert(up)
	require.NoError(t, err)
	require.Len(t, down, 2)

	assert.Equal(t, DropColumn, down[0].Kind)
	assert.Equal(t, "events", down[0].Table)
	assert.Equal(t, "location", down[0].Column.Name)
	assert.Equal(t, DropColumn, down[1].Kind)
	assert.Equal(t, "totalAmount", down[1].Column.Name)

	back, err := Invert(down)
	require.NoError(t, err)
	assert.True(t, Equal(up, back))
}

func TestInvertUnknownKind(t *testing.T) {
	_, err := Invert([]Change{{Kind: "RENAME_COLUMN", Table: "t"}})
	require.Error(t, err)
}

func TestColumnEqual(t *testing.T) {
	a := Numeric("price", 10, 2).WithDefault("0")

	assert.True(t, a.Equal(Numeric("price", 10, 2).WithDefault("0")))
	assert.False(t, a.Equal(Numeric("price", 10, 2)))
	assert.False(t, a.Equal(Numeric("price", 12, 2).WithDefault("0")))
	assert.False(t, a.Equal(a.Null()))
	assert.False(t, a.Equal(Numeric("price", 10, 2).WithDefault("1")))
}

func TestEqualLength(t *testing.T) {
	c := Add("events", Timestamp("startsAt"))
	assert.False(t, Equal([]Change{c}, nil))
	assert.True(t, Equal(nil, nil))
}

func TestTables(t *testing.T) {
	changes := []Change{
		Add("bookings", Timestamp("a")),
		Add("bookings", Timestamp("b")),
		Add("events", Timestamp("c")),
	}
	assert.Equal(t, []string{"bookings", "events"}, Tables(changes))
}
