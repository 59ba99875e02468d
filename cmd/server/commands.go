package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"currency-tracker/internal/adapter/store"
	"currency-tracker/pkg/utils"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion cycle for the tracked currencies and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer a.close()

		report := a.service.RunIngestion(cmd.Context())
		if err := printJSON(report); err != nil {
			return err
		}
		if report.Failed() > 0 {
			return fmt.Errorf("%d of %d currencies failed", report.Failed(), len(report.Outcomes))
		}
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch a date range from the provider and store every observation",
	RunE: func(cmd *cobra.Command, args []string) error {
		currency, _ := cmd.Flags().GetString("currency")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		from, err := utils.ParseDate(fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from, use YYYY-MM-DD: %w", err)
		}
		to, err := utils.ParseDate(toStr)
		if err != nil {
			return fmt.Errorf("invalid --to, use YYYY-MM-DD: %w", err)
		}

		a, err := buildApp(cmd.Context(), prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.service.Backfill(cmd.Context(), currency, from, to)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for migrate")
		}
		return store.Migrate(cmd.Context(), cfg.Database.URL, log)
	},
}

func init() {
	backfillCmd.Flags().String("currency", "", "currency code, e.g. EUR")
	backfillCmd.Flags().String("from", "", "first day, YYYY-MM-DD")
	backfillCmd.Flags().String("to", "", "last day, YYYY-MM-DD")
	_ = backfillCmd.MarkFlagRequired("currency")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
