package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// DefaultPDFTimeout bounds one PDF render.
const DefaultPDFTimeout = 30 * time.Second

// PDFOptions configures the headless browser used for PDF export.
type PDFOptions struct {
	// ChromePath overrides the browser executable. Empty uses the default
	// lookup.
	ChromePath string

	// Timeout bounds the whole render. Zero uses DefaultPDFTimeout.
	Timeout time.Duration
}

// WritePDF renders the HTML report in headless Chrome and prints it to PDF.
func WritePDF(ctx context.Context, w io.Writer, set types.RecordSet, opts PDFOptions) error {
	html, err := RenderHTML(set)
	if err != nil {
		return err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultPDFTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", true))
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	start := time.Now()
	var pdf []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to print PDF: %w", err)
	}

	slog.Debug("Rendered PDF export",
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))

	_, err = w.Write(pdf)
	return err
}
