package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/publisher"
)

var generateStatsCmd = &cobra.Command{
	Use:   "generate-stats",
	Short: "Generate statistics in Home Assistant from backfilled cost states",
	Long:  `Calls the AppDaemon endpoint to compile statistics from the published cost states. Run this after publishing to populate the Energy dashboard.`,
	RunE:  runGenerateStats,
}

func init() {
	rootCmd.AddCommand(generateStatsCmd)
}

func runGenerateStats(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Generate Statistics started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("Generating statistics for %s...\n", cfg.HomeAssistant.EntityID)
	result, err := publisher.GenerateStatistics(cmd.Context(), cfg.HomeAssistant)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Statistics generated successfully\n")
	fmt.Printf("  - Inserted: %d new statistics records\n", result.Inserted)
	fmt.Printf("  - Updated: %d existing statistics records\n", result.Updated)
	fmt.Printf("  - Total hours: %d\n", result.TotalHours)
	return nil
}
