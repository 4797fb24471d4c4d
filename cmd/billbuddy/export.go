package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/billbuddy/internal/report"
)

var (
	exportCustomer int
	exportFormat   string
	exportDir      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a customer's usage report",
	Long: `Logs in, fetches a customer's full usage log and lifetime totals and writes
Energy_Report_<Name>_<date>.pdf (headless Chrome) or .xlsx. Administrators
must pass --customer; customers always export their own data.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportCustomer, "customer", 0, "Customer id (administrators)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "pdf", "Report format: pdf or xlsx")
	exportCmd.Flags().StringVar(&exportDir, "out", "", "Output directory (default is export.dir)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := report.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	sess, err := loginOneShot(ctx)
	if err != nil {
		return err
	}
	defer sess.close(ctx)

	customerID, err := sess.customerFor(exportCustomer)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	dir := exportDir
	if dir == "" {
		dir = sess.cfg.GetExportDir()
	}

	exporter := report.NewExporter(report.ExporterDeps{
		Client:   sess.client,
		Notifier: printNotifier{},
		Renderers: map[report.Format]report.Renderer{
			report.PDF:  &report.PDFRenderer{ChromePath: sess.cfg.Export.ChromePath},
			report.XLSX: report.XLSXRenderer{},
		},
		Recorder: db,
		Dir:      dir,
		Currency: sess.cfg.GetCurrencySymbol(),
		Log:      sess.log,
	})

	path, err := exporter.Export(ctx, customerID, format)
	if err != nil {
		return fmt.Errorf("exporting report: %w", err)
	}

	fmt.Printf("Saved %s\n", path)
	return nil
}
