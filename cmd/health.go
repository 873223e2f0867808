package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/config"
	"github.com/ridoystarlord/bookingsdb/database"
	"github.com/ridoystarlord/bookingsdb/generator"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  bookingsdb health                    # Check default database connection
  bookingsdb health --timeout 10s      # Set custom timeout
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := checkDatabaseHealth(cmd.Context()); err != nil {
			fail("Database health check failed", err)
		}
		fmt.Println("✅ Database is healthy and accessible")
	},
}

var healthTimeout time.Duration

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
}

func checkDatabaseHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	cfg, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	count, found, err := trackedCount(ctx, db, cfg)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("⚠️  Database is accessible but %s table not found\n", cfg.MigrationsTable)
		fmt.Println("   Run 'bookingsdb migrate' to create it")
		return nil
	}

	fmt.Printf("📊 Found %d recorded migrations\n", count)
	return nil
}

// trackedCount reports how many rows the tracking table has, and whether it exists.
func trackedCount(ctx context.Context, db *sql.DB, cfg *config.Config) (int, bool, error) {
	var tableExists bool
	query := `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_schema = current_schema()
		AND table_name = $1
	)`
	if err := db.QueryRowContext(ctx, query, cfg.MigrationsTable).Scan(&tableExists); err != nil {
		return 0, false, fmt.Errorf("failed to check %s table: %w", cfg.MigrationsTable, err)
	}
	if !tableExists {
		return 0, false, nil
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+generator.QuoteIdent(cfg.MigrationsTable)).Scan(&count); err != nil {
		return 0, true, fmt.Errorf("failed to count migrations: %w", err)
	}
	return count, true, nil
}
