package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dbPath     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "adscension",
	Short: "Amazon Ads weekly analytics and KDP reconciliation for self-published authors",
	Long: `adscension ingests weekly Amazon Ads search-term exports and KDP royalty
reports, derives per-target and per-campaign performance, reconciles
ad-attributed orders against royalty ground truth, and writes a markdown
report with flags and bid recommendations.

Weekly snapshots are persisted to SQLite for week-over-week deltas,
trend views, and lifetime totals.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "campaigns.yaml", "Path to campaign configuration")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "db/adscension.db", "Path to the snapshot database")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(lifetimeCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
