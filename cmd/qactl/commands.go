package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"devoverflow/internal/audit"
	"devoverflow/internal/config"
	"devoverflow/internal/database"
	"devoverflow/internal/utils"

	"github.com/spf13/cobra"
)

// errDrift makes the process exit with status 1 after the report is printed.
var errDrift = errors.New("counter drift detected")

var (
	auditJSON    bool
	auditTimeout time.Duration

	rootCmd = &cobra.Command{
		Use:           "qactl",
		Short:         "Operate the devoverflow content store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Recount tags, votes and answers and report stored counters that drifted",
		RunE:  runAuditCommand,
	}

	indexesCmd = &cobra.Command{
		Use:   "indexes",
		Short: "Create the unique indexes the consistency rules depend on",
		RunE:  runIndexesCommand,
	}
)

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the report as JSON")
	auditCmd.Flags().DurationVar(&auditTimeout, "timeout", 2*time.Minute, "give up after this long")

	rootCmd.AddCommand(auditCmd, indexesCmd)
}

// exitCode maps command errors to process status: 1 for drift, 2 otherwise.
func exitCode(err error) int {
	if errors.Is(err, errDrift) {
		return 1
	}
	return 2
}

func loadMongo(ctx context.Context) (*database.MongoDB, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := utils.NewLogger(os.Stderr, cfg.LogFormat, cfg.Debug)
	if cfg.Database.Type != "mongo" {
		return nil, nil, fmt.Errorf("qactl needs DB_TYPE=mongo, got %q", cfg.Database.Type)
	}
	mongodb, err := database.NewMongoDB(ctx, cfg.Database.URI, cfg.Database.Name, logger)
	if err != nil {
		return nil, nil, err
	}
	return mongodb, logger, nil
}

func runAuditCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), auditTimeout)
	defer cancel()

	mongodb, _, err := loadMongo(ctx)
	if err != nil {
		return err
	}
	defer mongodb.Close(context.Background())

	return runAudit(ctx, mongodb, cmd.OutOrStdout(), auditJSON)
}

// runAudit scans inside one transaction so concurrent writers cannot show up
// as drift.
func runAudit(ctx context.Context, store database.Store, w io.Writer, asJSON bool) error {
	var report *audit.Report
	err := store.WithTransaction(ctx, func(ctx context.Context, u database.Unit) error {
		var err error
		report, err = audit.Check(ctx, u)
		return err
	})
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "scanned %d tags, %d links, %d questions, %d answers, %d votes\n",
			report.Tags, report.Links, report.Questions, report.Answers, report.Votes)
		for _, d := range report.Drift {
			fmt.Fprintln(w, d.String())
		}
		if report.OK() {
			fmt.Fprintln(w, "no drift")
		}
	}

	if !report.OK() {
		return errDrift
	}
	return nil
}

func runIndexesCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	mongodb, logger, err := loadMongo(ctx)
	if err != nil {
		return err
	}
	defer mongodb.Close(context.Background())

	if err := mongodb.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure indexes: %w", err)
	}
	logger.Info("indexes in place")
	return nil
}
