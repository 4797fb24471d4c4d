package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jgoulah/billbuddy/internal/api"
	"github.com/jgoulah/billbuddy/internal/clock"
	"github.com/jgoulah/billbuddy/internal/database"
	"github.com/jgoulah/billbuddy/internal/notify"
)

// ErrNoCustomer is returned when an export is requested without a customer
var ErrNoCustomer = errors.New("no customer selected")

// Recorder keeps the history of generated files
type Recorder interface {
	RecordExport(ctx context.Context, e database.Export) error
}

// ExporterDeps are the collaborators of an Exporter
type ExporterDeps struct {
	Client    *api.Client
	Notifier  notify.Notifier
	Renderers map[Format]Renderer
	Recorder  Recorder // optional
	Dir       string
	Currency  string
	Clock     clock.Clock
	Log       *zap.SugaredLogger
}

// Exporter fetches a customer's report payload, renders it and writes the file
type Exporter struct {
	client    *api.Client
	notes     notify.Notifier
	renderers map[Format]Renderer
	recorder  Recorder
	dir       string
	currency  string
	clock     clock.Clock
	log       *zap.SugaredLogger
}

// NewExporter creates an exporter. Without explicit renderers it uses headless
// Chrome for PDF and excelize for XLSX.
func NewExporter(d ExporterDeps) *Exporter {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	if d.Renderers == nil {
		d.Renderers = map[Format]Renderer{
			PDF:  &PDFRenderer{},
			XLSX: XLSXRenderer{},
		}
	}
	if d.Dir == "" {
		d.Dir = "."
	}
	return &Exporter{
		client:    d.Client,
		notes:     d.Notifier,
		renderers: d.Renderers,
		recorder:  d.Recorder,
		dir:       d.Dir,
		currency:  d.Currency,
		clock:     d.Clock,
		log:       d.Log,
	}
}

// Export writes the report for customerID and returns the file path
func (e *Exporter) Export(ctx context.Context, customerID int, format Format) (string, error) {
	if customerID == 0 {
		e.notify(notify.Error, "Please select a customer to generate a report.")
		return "", ErrNoCustomer
	}
	renderer, ok := e.renderers[format]
	if !ok {
		return "", fmt.Errorf("no renderer for format %q", format)
	}

	e.notify(notify.Info, fmt.Sprintf("Generating %s report...", format.Label()))

	data, err := e.client.ReportData(ctx, customerID)
	if err != nil {
		if !api.IsTransport(err) {
			e.notify(notify.Error, fmt.Sprintf("Failed to fetch data for %s report.", format.Label()))
		}
		return "", fmt.Errorf("fetching report data: %w", err)
	}

	now := e.clock.Now()
	doc := BuildDocument(data, e.currency, now)

	content, err := renderer.Render(ctx, doc)
	if err != nil {
		e.log.Errorw("report rendering failed", "format", format, "customer_id", customerID, "error", err)
		if errors.Is(err, ErrRendererUnavailable) {
			e.notify(notify.Error, "PDF library failed to load.")
		} else {
			e.notify(notify.Error, fmt.Sprintf("Failed to generate %s report.", format.Label()))
		}
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		e.notify(notify.Error, fmt.Sprintf("Failed to save %s report.", format.Label()))
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(e.dir, FileName(doc.Customer.CustomerName, now, format))
	if err := os.WriteFile(path, content, 0644); err != nil {
		e.notify(notify.Error, fmt.Sprintf("Failed to save %s report.", format.Label()))
		return "", fmt.Errorf("writing report: %w", err)
	}

	if e.recorder != nil {
		rec := database.Export{
			CustomerID:   customerID,
			CustomerName: doc.Customer.CustomerName,
			Format:       string(format),
			Path:         path,
			Bytes:        int64(len(content)),
			TotalKWh:     doc.TotalKWh,
			TotalCost:    doc.TotalCost,
			CreatedAt:    now,
		}
		// The file is already written, a history failure is only logged
		if err := e.recorder.RecordExport(ctx, rec); err != nil {
			e.log.Warnw("recording export failed", "path", path, "error", err)
		}
	}

	e.log.Infow("report exported", "format", format, "customer_id", customerID, "path", path, "bytes", len(content))
	e.notify(notify.Success, fmt.Sprintf("%s generated successfully!", format.Label()))
	return path, nil
}

func (e *Exporter) notify(kind notify.Kind, msg string) {
	if e.notes != nil {
		e.notes.Notify(kind, msg)
	}
}
