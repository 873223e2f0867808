package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/runner"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var report *runner.StatusReport
		err := withRunner(ctx, func(r *runner.Runner) error {
			var err error
			report, err = r.Status(ctx)
			return err
		})
		if err != nil {
			fail("Status error", err)
		}

		yellow := color.New(color.FgYellow, color.Bold)

		fmt.Println("✅ Applied migrations:")
		for _, f := range report.Applied {
			fmt.Println("   -", f)
		}

		if len(report.Failed) > 0 {
			fmt.Println("\n❌ Failed migrations:")
			for _, f := range report.Failed {
				fmt.Printf("   - %s: %s\n", f.MigrationName, f.ErrorMessage)
			}
		}

		if len(report.Drifted) > 0 {
			yellow.Println("\n⚠️  Changed after being applied (checksum mismatch):")
			for _, f := range report.Drifted {
				fmt.Println("   -", f)
			}
		}

		if len(report.Unknown) > 0 {
			yellow.Println("\n⚠️  Applied but not part of this build:")
			for _, f := range report.Unknown {
				fmt.Println("   -", f)
			}
		}

		fmt.Println("\n🕒 Pending migrations:")
		for _, f := range report.Pending {
			fmt.Println("   -", f)
		}
	},
}
