package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/runner"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations.

Examples:
  bookingsdb rollback           # Rollback the last migration
  bookingsdb rollback --steps=3 # Rollback the last 3 migrations
  bookingsdb rollback -s 5      # Rollback the last 5 migrations
`,
	Run: func(cmd *cobra.Command, args []string) {
		if steps < 1 {
			fmt.Println("❌ Steps must be at least 1")
			os.Exit(1)
		}

		ctx := cmd.Context()
		var reverted []string
		err := withRunner(ctx, func(r *runner.Runner) error {
			var err error
			reverted, err = r.Rollback(ctx, steps)
			return err
		})
		for _, name := range reverted {
			fmt.Println("   ↩️ ", name)
		}
		if err != nil {
			fail("Rollback failed", err)
		}

		switch len(reverted) {
		case 0:
			fmt.Println("✅ No migrations to rollback.")
		case 1:
			fmt.Println("✅ Rolled back 1 migration.")
		default:
			fmt.Printf("✅ Rolled back %d migrations.\n", len(reverted))
		}
	},
}
