package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/database"
	"github.com/ridoystarlord/bookingsdb/introspect"
	"github.com/ridoystarlord/bookingsdb/migrations"
	"github.com/ridoystarlord/bookingsdb/schema"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [table...]",
	Short: "Show the live columns of the migrated tables",
	Long: `Show the live columns of each table, marking the ones a registered
migration adds and whether they match its declaration.

Without arguments every table touched by a registered migration is shown.

Examples:
  bookingsdb inspect
  bookingsdb inspect bookings
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		declared := declaredColumns(migrations.All())
		tables := args
		if len(tables) == 0 {
			var ups []schema.Change
			for _, m := range migrations.All() {
				ups = append(ups, m.Up...)
			}
			tables = schema.Tables(ups)
		}

		_, db, err := connect(ctx)
		if err != nil {
			fail("Connecting", err)
		}
		defer database.Close()

		snapshot, err := introspect.Snapshot(ctx, db, tables...)
		if err != nil {
			fail("Inspecting schema", err)
		}

		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		for _, table := range tables {
			cols := snapshot[table]
			fmt.Printf("\n📋 %s\n", table)
			if len(cols) == 0 {
				fmt.Println("   (table not found)")
				continue
			}
			for _, col := range cols {
				fmt.Printf("   - %-20s %s%s%s", col.ColumnName, describeType(col), nullText(col.IsNullable), defaultText(col.ColumnDefault))
				want, ok := declared[table][col.ColumnName]
				if !ok {
					fmt.Println()
					continue
				}
				if match, reason := introspect.Matches(want, col); match {
					green.Println("  ✔ migrated")
				} else {
					red.Printf("  ✘ %s\n", reason)
				}
			}
		}
	},
}

// declaredColumns indexes the columns added by ms by table and column name.
// Later migrations win.
func declaredColumns(ms []migrations.Migration) map[string]map[string]schema.Column {
	out := make(map[string]map[string]schema.Column)
	for _, m := range ms {
		for _, c := range m.Up {
			if c.Kind != schema.AddColumn {
				continue
			}
			if out[c.Table] == nil {
				out[c.Table] = make(map[string]schema.Column)
			}
			out[c.Table][c.Column.Name] = c.Column
		}
	}
	return out
}

func describeType(col introspect.ExistingColumn) string {
	switch {
	case col.Precision != nil && col.Scale != nil && col.DataType == "numeric":
		return fmt.Sprintf("numeric(%d,%d)", *col.Precision, *col.Scale)
	case col.MaxLength != nil:
		return fmt.Sprintf("%s(%d)", col.DataType, *col.MaxLength)
	default:
		return col.DataType
	}
}

func nullText(nullable bool) string {
	if nullable {
		return " NULL"
	}
	return " NOT NULL"
}

func defaultText(def *string) string {
	if def == nil {
		return ""
	}
	return " DEFAULT " + *def
}
