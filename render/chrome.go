package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeConfig configures the headless browser renderer.
type ChromeConfig struct {
	// ExecPath is the browser binary. Empty lets chromedp search the usual
	// locations.
	ExecPath string

	// Timeout bounds one render, browser start included.
	Timeout time.Duration

	// MaxConcurrent limits simultaneous browser instances.
	MaxConcurrent int

	// NoSandbox disables the Chromium sandbox, needed in most containers.
	NoSandbox bool

	Page PageSpec
}

// Chrome renders through a headless Chromium started per request.
type Chrome struct {
	cfg    ChromeConfig
	slots  chan struct{}
	logger *slog.Logger
}

// NewChrome creates a Chrome renderer. Zero values in cfg fall back to a
// 30 second timeout, two concurrent browsers and an A4 page.
func NewChrome(cfg ChromeConfig, logger *slog.Logger) *Chrome {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.Page == (PageSpec{}) {
		cfg.Page = A4()
	}
	return &Chrome{
		cfg:    cfg,
		slots:  make(chan struct{}, cfg.MaxConcurrent),
		logger: logger,
	}
}

// Render loads html into a blank page and prints it.
func (c *Chrome) Render(ctx context.Context, html []byte) ([]byte, error) {
	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return nil, &Error{Op: "acquire browser", err: ctx.Err()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			spec := c.cfg.Page
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(false).
				WithPaperWidth(inches(spec.WidthMM)).
				WithPaperHeight(inches(spec.HeightMM)).
				WithMarginTop(inches(spec.MarginTopMM)).
				WithMarginRight(inches(spec.MarginRightMM)).
				WithMarginBottom(inches(spec.MarginBottomMM)).
				WithMarginLeft(inches(spec.MarginLeftMM)).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &Error{Op: "chrome", err: err}
	}

	c.logger.Debug("Rendered PDF",
		"bytes", len(pdf),
		"html_bytes", len(html),
		"duration", time.Since(start))
	return pdf, nil
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	return opts
}
