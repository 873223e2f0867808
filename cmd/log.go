package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/runner"
)

var (
	logLimit int
	logRunID string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent migration activities",
	Long: `Show recent migration activities and logs.

Examples:
  bookingsdb log                    # Show recent migration logs
  bookingsdb log --limit 20         # Show last 20 log entries
  bookingsdb log --run <run-id>     # Show entries of a single run
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var logs []runner.MigrationLog
		err := withRunner(ctx, func(r *runner.Runner) error {
			var err error
			logs, err = r.Logs(ctx, logLimit, logRunID)
			return err
		})
		if err != nil {
			fail("Error getting migration logs", err)
		}

		if len(logs) == 0 {
			fmt.Println("📋 No migration logs found")
			return
		}

		showMigrationLogs(logs)
	},
}

func showMigrationLogs(logs []runner.MigrationLog) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	fmt.Println("📋 Recent Migration Activities")
	fmt.Println(strings.Repeat("=", 60))

	for i, log := range logs {
		fmt.Printf("\n%d. ", i+1)

		// Level indicator
		switch log.Level {
		case "INFO":
			blue.Print("ℹ️  ")
		case "WARN":
			yellow.Print("⚠️  ")
		case "ERROR":
			red.Print("❌ ")
		case "SUCCESS":
			green.Print("✅ ")
		default:
			fmt.Print("📝 ")
		}

		// Timestamp
		cyan.Printf("[%s] ", log.Timestamp.Format("2006-01-02 15:04:05"))

		// Message
		fmt.Printf("%s", log.Message)

		// User if available
		if log.User != "" {
			fmt.Printf(" (by %s)", log.User)
		}

		fmt.Println()

		// Additional details if available
		if log.Details != "" {
			cyan.Printf("   📄 Details: %s\n", log.Details)
		}
		if log.RunID != "" {
			cyan.Printf("   🏷️  Run: %s\n", log.RunID)
		}
	}

	// Summary
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("📊 Showing %d recent log entries\n", len(logs))
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 50, "Limit number of log entries to show")
	logCmd.Flags().StringVar(&logRunID, "run", "", "Only show entries of this run id")
}
