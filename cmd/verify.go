package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the live schema against applied migrations",
	Long: `Check the current state of your database schema against the migrations
recorded as applied.

This command will:
- Verify database connectivity
- Read the applied migrations from the tracking table
- Check that every column they add exists with the declared type,
  nullability and default
- Report any inconsistencies

Examples:
  bookingsdb verify                    # Check current state
  bookingsdb verify --timeout 10s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
		defer cancel()

		result, err := verifyLiveSchema(ctx)
		if err != nil {
			fail("Schema check failed", err)
		}
		if err := output(result); err != nil {
			fail("Writing validation result", err)
		}
		if !result.Valid {
			os.Exit(1)
		}
		fmt.Println("✅ Schema check completed successfully")
	},
}

var verifyTimeout time.Duration

func init() {
	verifyCmd.Flags().DurationVarP(&verifyTimeout, "timeout", "t", 10*time.Second, "Timeout for schema check")
	verifyCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}
