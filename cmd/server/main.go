// Command server runs the currency tracker: an HTTP API over PLN exchange rates and
// a scheduler that ingests them daily.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"currency-tracker/internal/config"
	"currency-tracker/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "currency-tracker",
	Short:         "Track PLN exchange rates and serve analytics over them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Log.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logger.NewLogger(level)
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(migrateCmd)
}
