// =============================================================================
// NF-e to DANFE Converter - PDF Renderer
// =============================================================================
//
// This package prints composed DANFE HTML to PDF through headless Chrome
// (chromedp). One browser process is started per run; every Render opens a
// fresh tab, loads the HTML, prints it and closes the tab.
//
// CONCURRENCY:
//   Calls to Render are serialized. The batch driver renders one file at a
//   time and the browser is never driven from two goroutines at once.
//
// TIMEOUTS:
//   Timeout 0 (the default) leaves the print call unbounded; a hung print
//   blocks only the worker calling Render.
//
// =============================================================================

package pdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// =============================================================================
// CONTRACT
// =============================================================================

// Renderer turns HTML into PDF bytes. Failures are reported as *RenderError.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// RenderError carries the underlying renderer failure.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("pdf render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// ErrClosed is returned by Render after Close.
var ErrClosed = errors.New("pdf renderer is closed")

// =============================================================================
// CHROME RENDERER
// =============================================================================

// ChromeOptions configures the browser.
type ChromeOptions struct {
	// ExecPath points at a Chrome/Chromium binary. Empty lets chromedp
	// search the usual locations.
	ExecPath string

	// Timeout bounds a single Render. Zero means no timeout.
	Timeout time.Duration
}

// Chrome renders PDFs with a shared headless browser.
type Chrome struct {
	mu      sync.Mutex
	timeout time.Duration

	browser     context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	closed      bool
}

// NewChrome starts a headless browser.
//
// RETURNS:
//   - The renderer. Call Close when the run is over.
//   - A *RenderError if the browser cannot be started.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browser, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run launches the browser process.
	if err := chromedp.Run(browser); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &RenderError{Err: fmt.Errorf("failed to start browser: %w", err)}
	}

	return &Chrome{
		timeout:     opts.Timeout,
		browser:     browser,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// Render prints html to an A4 PDF. An in-flight print is not interrupted by
// cancellation of the caller's context; the batch driver checks for
// cancellation between files.
func (c *Chrome) Render(_ context.Context, html string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, &RenderError{Err: ErrClosed}
	}

	tab, cancel := chromedp.NewContext(c.browser)
	defer cancel()

	if c.timeout > 0 {
		var cancelTimeout context.CancelFunc
		tab, cancelTimeout = context.WithTimeout(tab, c.timeout)
		defer cancelTimeout()
	}

	var out []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.2).
				WithMarginBottom(0.2).
				WithMarginLeft(0.2).
				WithMarginRight(0.2).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	if len(out) == 0 {
		return nil, &RenderError{Err: errors.New("browser returned an empty document")}
	}
	return out, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancelTab()
	c.cancelAlloc()
	return nil
}
