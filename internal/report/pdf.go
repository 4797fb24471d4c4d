package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrRendererUnavailable means the PDF engine (headless Chrome) could not be started
var ErrRendererUnavailable = errors.New("PDF library failed to load")

const defaultPDFTimeout = 60 * time.Second

// Renderer produces the bytes of one export format
type Renderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// PDFRenderer prints the HTML document with headless Chrome
type PDFRenderer struct {
	ChromePath string // empty uses the chromedp default lookup
	Timeout    time.Duration
}

// Render prints doc to PDF
func (r *PDFRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	html, err := RenderHTML(doc)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if r.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.ChromePath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultPDFTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	// An empty run starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	}

	var pdf []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("getting frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return fmt.Errorf("printing to PDF: %w", err)
			}
			pdf = data
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}

	return pdf, nil
}
