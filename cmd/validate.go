package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/bookingsdb/migrations"
	"github.com/ridoystarlord/bookingsdb/runner"
	"github.com/ridoystarlord/bookingsdb/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the registered migrations",
	Long: `Validate the migrations compiled into this binary.

Offline checks (no database required):
- Migration ids are numeric, unique and sortable
- Table and column names follow PostgreSQL identifier rules
- Every change renders to SQL
- Every rollback is the exact inverse of its forward changes

With --online the applied migrations are also verified against the live schema
(requires DATABASE_URL).

Examples:
  bookingsdb validate                 # Offline validation
  bookingsdb validate --online        # Also verify the live schema
  bookingsdb validate --format json   # Output validation results as JSON
`,
	Run: func(cmd *cobra.Command, args []string) {
		result := validator.ValidateMigrations(migrations.All())
		if err := output(result); err != nil {
			fail("Writing validation result", err)
		}

		if validateOnline {
			online, err := verifyLiveSchema(cmd.Context())
			if err != nil {
				fail("Schema verification failed", err)
			}
			if err := output(online); err != nil {
				fail("Writing validation result", err)
			}
			result.Valid = result.Valid && online.Valid
		}

		if !result.Valid {
			os.Exit(1)
		}
	},
}

var (
	validateOnline bool
	validateFormat string
)

func init() {
	validateCmd.Flags().BoolVar(&validateOnline, "online", false, "Also verify applied migrations against the database")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "text", "Output format (text, json)")
}

// verifyLiveSchema checks the columns of every applied migration.
func verifyLiveSchema(ctx context.Context) (*validator.ValidationResult, error) {
	var result *validator.ValidationResult
	err := withRunner(ctx, func(r *runner.Runner) error {
		report, err := r.Status(ctx)
		if err != nil {
			return err
		}
		var applied []migrations.Migration
		for _, name := range report.Applied {
			if m, ok := migrations.Find(name); ok {
				applied = append(applied, m)
			}
		}

		result, err = validator.NewSchemaValidator(r.DB()).Verify(ctx, applied)
		return err
	})
	return result, err
}

func output(result *validator.ValidationResult) error {
	if validateFormat == "json" {
		return outputJSON(result)
	}
	return outputText(result)
}

func outputJSON(result *validator.ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result *validator.ValidationResult) error {
	// Print summary
	if result.Valid {
		color.Green("✅ Validation passed!")
	} else {
		color.Red("❌ Validation failed!")
	}

	printIssues("🔴 Errors", result.Errors)
	printIssues("🟡 Warnings", result.Warnings)
	printIssues("🔵 Info", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))

	if !result.Valid {
		fmt.Printf("\n💡 Fix the errors above before running migrations.\n")
	}
	return nil
}

func printIssues(title string, issues []validator.ValidationError) {
	if len(issues) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", title, len(issues))
	for i, issue := range issues {
		fmt.Printf("  %d. ", i+1)
		if issue.Migration != "" {
			fmt.Printf("{%s} ", issue.Migration)
		}
		if issue.Table != "" {
			fmt.Printf("[%s]", issue.Table)
		}
		if issue.Column != "" {
			fmt.Printf(".%s", issue.Column)
		}
		fmt.Printf(": %s\n", issue.Message)
	}
}
