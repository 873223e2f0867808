package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridoystarlord/bookingsdb/config"
	"github.com/ridoystarlord/bookingsdb/database"
	"github.com/ridoystarlord/bookingsdb/runner"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "bookingsdb",
	Short: "Schema migrations for the bookings and events database",
	Long: `bookingsdb applies and reverts the Go-coded schema migrations of the
bookings/events database and keeps an audit trail of every run.

Examples:

  bookingsdb migrate
  bookingsdb migrate --dry-run
  bookingsdb rollback --steps 1
  bookingsdb status
`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable structured debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(healthCmd)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig() (*config.Config, error) {
	config.LoadEnv()
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func connect(ctx context.Context) (*config.Config, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Get(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// withRunner connects, builds a runner and hands it to fn. The pool is closed
// afterwards.
func withRunner(ctx context.Context, fn func(r *runner.Runner) error) error {
	cfg, db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	return fn(runner.New(db, cfg, runner.WithLogger(logger)))
}

// fail prints err with an operator hint, when one exists, and exits.
func fail(what string, err error) {
	fmt.Printf("❌ %s: %v\n", what, err)
	if hint := database.Hint(err); hint != "" {
		fmt.Println("💡", hint)
	}
	os.Exit(1)
}
