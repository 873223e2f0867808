package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/runner"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <migration>",
	Short: "Clear the failed record of a migration so it can be retried",
	Long: `Clear the failed record of a migration after fixing the database by hand.
The migration may be given by id or by full name.

Examples:
  bookingsdb resolve 1717236000000
  bookingsdb resolve 1717236000000_AddBookingTotalsAndEventDetails
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		err := withRunner(ctx, func(r *runner.Runner) error {
			return r.Resolve(ctx, args[0])
		})
		if err != nil {
			fail("Resolve error", err)
		}
		fmt.Println("✅ Failed record cleared:", args[0])
		fmt.Println("🚀 Run 'bookingsdb migrate' to retry it")
	},
}
