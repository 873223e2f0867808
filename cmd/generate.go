package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/generator"
	"github.com/ridoystarlord/bookingsdb/schema"
)

var (
	generateDir    string
	generateAdds   []string
	dryRunGenerate bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateDir, "dir", "d", "migrations", "Directory the migration file is written to")
	generateCmd.Flags().StringArrayVarP(&generateAdds, "add", "a", nil, "Column to add, as table.column:type[:null][:default=expr] (repeatable)")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the migration without writing files")
	_ = generateCmd.MarkFlagRequired("add")
}

var generateCmd = &cobra.Command{
	Use:   "generate <Name>",
	Short: "Scaffold a new add-column migration",
	Long: `Scaffold a Go migration that adds columns. The rollback drops them again,
in reverse order.

Types: numeric(p,s), timestamp, varchar(n). Columns are NOT NULL unless
":null" is given.

Examples:
  bookingsdb generate AddEventCapacity --add events.capacity:numeric(10,0):default=0
  bookingsdb generate AddBookingNotes --add bookings.notes:varchar(500):null
  bookingsdb generate AddBookingNotes --add bookings.notes:varchar(500):null --dry-run
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]

		var up []schema.Change
		for _, spec := range generateAdds {
			c, err := generator.ParseAddColumn(spec)
			if err != nil {
				fail("Parsing --add", err)
			}
			up = append(up, c)
		}

		now := time.Now()

		if dryRunGenerate {
			src, err := generator.RenderMigration(generator.MigrationID(now), name, up)
			if err != nil {
				fail("Generating migration", err)
			}
			down, err := schema.Invert(up)
			if err != nil {
				fail("Generating rollback", err)
			}
			upSQL, err := generator.Statements(up)
			if err != nil {
				fail("Generating SQL", err)
			}
			downSQL, err := generator.Statements(down)
			if err != nil {
				fail("Generating rollback SQL", err)
			}

			fmt.Println("\n================ DRY RUN: Migration Preview ================")
			fmt.Println("-- Up Migration SQL --")
			for _, stmt := range upSQL {
				fmt.Println(stmt)
			}
			fmt.Println("\n-- Down Migration (Rollback) SQL --")
			for _, stmt := range downSQL {
				fmt.Println(stmt)
			}
			fmt.Println("\n-- Go source --")
			fmt.Print(string(src))
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No files were written.)")
			return
		}

		filename, err := generator.WriteMigrationFile(generateDir, name, up, now)
		if err != nil {
			fail("Writing migration file", err)
		}

		fmt.Println("✅ Migration generated:", filename)
		fmt.Println("🔨 Rebuild bookingsdb to include it, then run 'bookingsdb migrate'")
	},
}
