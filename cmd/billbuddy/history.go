package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/database"
)

var (
	historyCustomer int
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List generated reports",
	Long:  `Displays the reports exported from this machine, newest first, from the local database.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyCustomer, "customer", 0, "Filter by customer id")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Limit number of entries (0 = no limit)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	exports, err := db.ListExports(cmd.Context(), historyCustomer, historyLimit)
	if err != nil {
		return fmt.Errorf("listing exports: %w", err)
	}

	printExports(exports)
	return nil
}

// printExports prints export history as a table
func printExports(exports []database.Export) {
	if len(exports) == 0 {
		fmt.Println("No exports found")
		return
	}

	fmt.Println("----------------------------------------------------------------------------")
	fmt.Printf("%-16s  %-20s  %-5s  %9s  %12s  %s\n", "When", "Customer", "Type", "Size", "Total Cost", "File")
	fmt.Println("----------------------------------------------------------------------------")

	var bytes uint64
	for _, e := range exports {
		fmt.Printf("%-16s  %-20s  %-5s  %9s  %12.2f  %s\n",
			humanize.Time(e.CreatedAt),
			truncate(e.CustomerName, 20),
			e.Format,
			humanize.Bytes(uint64(e.Bytes)),
			e.TotalCost,
			e.Path)
		bytes += uint64(e.Bytes)
	}

	fmt.Println("----------------------------------------------------------------------------")
	fmt.Printf("Total: %s (%d reports)\n", humanize.Bytes(bytes), len(exports))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
