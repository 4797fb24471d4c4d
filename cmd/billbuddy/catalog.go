package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/catalog"
	"github.com/jgoulah/billbuddy/internal/render"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the application catalog",
	Long:  `Logs in and prints every application usage can be logged for, with its wattage.`,
	RunE:  runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, err := loginOneShot(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	apps, err := sess.client.Applications(ctx)
	if err != nil {
		return fmt.Errorf("fetching applications: %w", err)
	}

	store := catalog.New()
	store.Load(apps)

	currency := sess.cfg.GetCurrencySymbol()
	render.NewTerminal(os.Stdout, currency).ShowCatalog(store.All())
	fmt.Printf("%d applications, billed at %s per kWh\n", store.Len(), render.FormatCurrency(currency, sess.cfg.GetCostPerKWh()))
	return nil
}
