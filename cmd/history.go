package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/migrations"
	"github.com/ridoystarlord/bookingsdb/runner"
)

var (
	historyLimit    int
	historyTable    string
	historyDetailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show detailed migration history",
	Long: `Show detailed migration history with timestamps, execution times, and user information.

Examples:
  bookingsdb history                    # Show all migration history
  bookingsdb history --limit 10         # Show last 10 migrations
  bookingsdb history --table events     # Show migrations touching a table
  bookingsdb history --detailed         # Show detailed information
`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var history []runner.MigrationRecord
		err := withRunner(ctx, func(r *runner.Runner) error {
			var err error
			history, err = r.History(ctx, historyLimit, historyTable)
			return err
		})
		if err != nil {
			fail("Error getting migration history", err)
		}

		if len(history) == 0 {
			fmt.Println("📋 No migration history found")
			return
		}

		showMigrationHistory(history, historyDetailed)
	},
}

func showMigrationHistory(history []runner.MigrationRecord, detailed bool) {
	fmt.Println("📋 Migration History")
	fmt.Println(strings.Repeat("=", 60))

	if detailed {
		showDetailedHistory(history)
	} else {
		showSummaryHistory(history)
	}
}

func showDetailedHistory(history []runner.MigrationRecord) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	cyan := color.New(color.FgCyan)

	for i, record := range history {
		fmt.Printf("\n%d. ", i+1)

		// Status indicator
		if record.Status == runner.StatusSuccess {
			green.Print("✅ ")
		} else if record.Status == runner.StatusFailed {
			red.Print("❌ ")
		} else {
			yellow.Print("⚠️ ")
		}

		// Migration name
		blue.Printf("%s\n", record.MigrationName)

		// Timestamp
		cyan.Printf("   📅 Executed: %s\n", record.ExecutedAt.Format("2006-01-02 15:04:05"))

		// Execution time
		if record.ExecutionTime > 0 {
			cyan.Printf("   ⏱️  Duration: %v\n", record.ExecutionTime)
		}

		// User
		if record.ExecutedBy != "" {
			cyan.Printf("   👤 User: %s\n", record.ExecutedBy)
		}

		// Status
		cyan.Printf("   📊 Status: %s\n", record.Status)

		// Error message if failed
		if record.Status == runner.StatusFailed && record.ErrorMessage != "" {
			red.Printf("   💥 Error: %s\n", record.ErrorMessage)
		}

		if record.TablesAffected != "" {
			cyan.Printf("   🗂️  Tables: %s\n", record.TablesAffected)
		}

		if len(record.Checksum) >= 8 {
			cyan.Printf("   🔍 Checksum: %s\n", record.Checksum[:8]+"...")
		}
		switch checksumState(record) {
		case checksumDrifted:
			yellow.Println("   ⚠️  Changed since it was applied")
		case checksumUnknown:
			yellow.Println("   ⚠️  Not part of this build")
		}
	}
}

func showSummaryHistory(history []runner.MigrationRecord) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)

	fmt.Printf("%-4s %-8s %-25s %-12s %-10s %-17s %s\n", "ID", "Status", "Migration", "Duration", "User", "Date", "Tables")
	fmt.Println(strings.Repeat("-", 100))

	for i, record := range history {
		// Status indicator
		var status string
		if record.Status == runner.StatusSuccess {
			status = green.Sprint("✅")
		} else if record.Status == runner.StatusFailed {
			status = red.Sprint("❌")
		} else {
			status = yellow.Sprint("⚠️")
		}

		// Duration
		var duration string
		if record.ExecutionTime > 0 {
			duration = record.ExecutionTime.String()
		} else {
			duration = "N/A"
		}

		// User
		user := record.ExecutedBy
		if user == "" {
			user = "N/A"
		}

		// Migration name (truncate if too long)
		migrationName := record.MigrationName
		if len(migrationName) > 23 {
			migrationName = migrationName[:20] + "..."
		}

		tables := record.TablesAffected
		if checksumState(record) == checksumDrifted {
			tables += yellow.Sprint(" (changed)")
		}

		fmt.Printf("%-4d %-8s %-25s %-12s %-10s %-17s %s\n",
			i+1,
			status,
			blue.Sprint(migrationName),
			duration,
			user,
			record.ExecutedAt.Format("2006-01-02 15:04"),
			tables,
		)
	}

	// Summary statistics
	fmt.Println(strings.Repeat("-", 100))

	successCount := 0
	failedCount := 0
	driftedCount := 0
	totalDuration := time.Duration(0)

	for _, record := range history {
		if record.Status == runner.StatusSuccess {
			successCount++
		} else if record.Status == runner.StatusFailed {
			failedCount++
		}
		if record.ExecutionTime > 0 {
			totalDuration += record.ExecutionTime
		}
		if checksumState(record) == checksumDrifted {
			driftedCount++
		}
	}

	fmt.Printf("📊 Summary: %d total, %d successful, %d failed\n",
		len(history), successCount, failedCount)
	if driftedCount > 0 {
		yellow.Printf("⚠️  %d applied migration(s) changed since they ran; see 'bookingsdb status'\n", driftedCount)
	}

	if totalDuration > 0 {
		fmt.Printf("⏱️  Total execution time: %v\n", totalDuration)
	}
}

type checksumCheck int

const (
	checksumOK checksumCheck = iota
	checksumDrifted
	checksumUnknown
)

// checksumState compares a successful record with the migration registered
// under the same name.
func checksumState(record runner.MigrationRecord) checksumCheck {
	if record.Status != runner.StatusSuccess {
		return checksumOK
	}
	m, ok := migrations.Find(record.MigrationName)
	if !ok {
		return checksumUnknown
	}
	sum, err := m.Checksum()
	if err != nil || record.Checksum == "" || sum == record.Checksum {
		return checksumOK
	}
	return checksumDrifted
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 0, "Limit number of records to show (0 = all)")
	historyCmd.Flags().StringVarP(&historyTable, "table", "t", "", "Filter by table name")
	historyCmd.Flags().BoolVarP(&historyDetailed, "detailed", "d", false, "Show detailed information")
}
