package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/runner"
)

var dryRunMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		if dryRunMigrate {
			err := withRunner(ctx, func(r *runner.Runner) error {
				return r.Preview(ctx, os.Stdout)
			})
			if err != nil {
				fail("Dry run failed", err)
			}
			return
		}

		err := withRunner(ctx, func(r *runner.Runner) error {
			applied, err := r.Apply(ctx)
			for _, name := range applied {
				fmt.Println("   ✅", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("✅ No pending migrations.")
			} else {
				fmt.Printf("✅ Applied %d migration(s). Run id: %s\n", len(applied), r.RunID())
			}
			return nil
		})
		if errors.Is(err, runner.ErrFailedMigrations) {
			fmt.Println("💡 Fix the issue, then run 'bookingsdb resolve <id>' and 'bookingsdb migrate' again.")
		}
		if err != nil {
			fail("Migration failed", err)
		}
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
