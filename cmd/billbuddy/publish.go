package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/analysis"
	"github.com/jgoulah/billbuddy/internal/database"
	"github.com/jgoulah/billbuddy/internal/publisher"
	"github.com/jgoulah/billbuddy/pkg/models"
)

var (
	publishCustomer int
	publishSince    string
	publishUntil    string
	publishAll      bool
	publishLimit    int
	publishOffline  bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish cost totals to MQTT and Home Assistant",
	Long: `Fetches today's day, month and year cost for each customer, stores them as
snapshots in the local database and publishes every unpublished snapshot over
MQTT (<prefix>/customer/<id>/cost) and/or to the Home Assistant backfill API.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().IntVar(&publishCustomer, "customer", 0, "Customer id (default: every customer for administrators)")
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish snapshots since this date (YYYY-MM-DD or relative like 7d)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish snapshots until this date (YYYY-MM-DD)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all snapshots (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of snapshots to publish (0 = no limit)")
	publishCmd.Flags().BoolVar(&publishOffline, "offline", false, "Skip the backend and only publish stored snapshots")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.MQTT.Enabled && !cfg.HomeAssistant.Enabled {
		return fmt.Errorf("neither MQTT nor Home Assistant is enabled in config")
	}

	// Parse date filters if provided
	var sinceDate, untilDate *time.Time
	if publishSince != "" {
		since, err := parseDate(publishSince)
		if err != nil {
			return fmt.Errorf("parsing --since date: %w", err)
		}
		sinceDate = &since
	}
	if publishUntil != "" {
		until, err := parseDate(publishUntil)
		if err != nil {
			return fmt.Errorf("parsing --until date: %w", err)
		}
		untilDate = &until
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if !publishOffline {
		if err := takeSnapshots(cmd, db); err != nil {
			return err
		}
	}

	mqttCfg := cfg.MQTT
	mqttCfg.TopicPrefix = cfg.GetTopicPrefix()
	pub, err := publisher.New(mqttCfg, cfg.HomeAssistant)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	// Default: only publish unpublished snapshots
	snapshots, err := db.ListSnapshots(ctx, !publishAll)
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}

	// Filter by customer and date range if specified
	filtered := []database.Snapshot{}
	for _, s := range snapshots {
		if publishCustomer != 0 && s.CustomerID != publishCustomer {
			continue
		}
		if sinceDate != nil && s.Date.Before(*sinceDate) {
			continue
		}
		if untilDate != nil && s.Date.After(*untilDate) {
			continue
		}
		filtered = append(filtered, s)
	}

	if len(filtered) == 0 {
		if publishAll {
			fmt.Println("No snapshots found")
		} else {
			fmt.Println("No unpublished snapshots found")
		}
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(filtered) > publishLimit {
		filtered = filtered[:publishLimit]
		fmt.Printf("Limiting to %d snapshots (--limit flag)\n", publishLimit)
	}

	fmt.Printf("Publishing %d snapshots...\n", len(filtered))
	published := 0
	for i, s := range filtered {
		fmt.Printf("[%d/%d] Publishing %s %s (month %.2f)... ", i+1, len(filtered), s.CustomerName, s.Date.Format("2006-01-02"), s.MonthCost)
		if err := pub.Publish(ctx, s); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		// Mark snapshot as published in database
		if err := db.MarkPublished(ctx, s.ID); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nTotal snapshots published: %d/%d\n", published, len(filtered))
	return nil
}

// takeSnapshots logs in and stores today's totals for the customers to publish
func takeSnapshots(cmd *cobra.Command, db *database.DB) error {
	ctx := cmd.Context()

	sess, err := loginOneShot(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	var customers []models.Customer
	switch {
	case sess.user.Role != models.RoleAdmin:
		if _, err := sess.customerFor(publishCustomer); err != nil {
			return err
		}
		customers = []models.Customer{{CustomerID: sess.user.ID, CustomerName: sess.user.Name}}
	default:
		all, err := sess.client.Customers(ctx)
		if err != nil {
			return fmt.Errorf("fetching customers: %w", err)
		}
		for _, c := range all {
			if publishCustomer == 0 || c.CustomerID == publishCustomer {
				customers = append(customers, c)
			}
		}
		if publishCustomer != 0 && len(customers) == 0 {
			return fmt.Errorf("customer %d not found", publishCustomer)
		}
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, c := range customers {
		totals, err := analysis.FetchTotals(ctx, sess.client, c.CustomerID, now)
		if err != nil {
			fmt.Printf("⚠ Skipping %s: %v\n", c.CustomerName, err)
			continue
		}

		err = db.SaveSnapshot(ctx, database.Snapshot{
			CustomerID:   c.CustomerID,
			CustomerName: c.CustomerName,
			Date:         today,
			DayCost:      totals.Day,
			MonthCost:    totals.Month,
			YearCost:     totals.Year,
		})
		if err != nil {
			return fmt.Errorf("saving snapshot for %s: %w", c.CustomerName, err)
		}
		fmt.Printf("✓ %s: day %.2f, month %.2f, year %.2f\n", c.CustomerName, totals.Day, totals.Month, totals.Year)
	}
	return nil
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			return time.Now().AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}
