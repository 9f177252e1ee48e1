package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser owns a headless Chrome allocator shared by scrape runs.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	headless bool
}

// NewBrowser creates a browser-backed fetcher. Pass headless=false to
// watch the session while debugging a directory site.
func NewBrowser(headless bool) *Browser {
	return &Browser{
		headless: headless,
	}
}

// Start initializes the browser allocator
func (b *Browser) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
	)

	b.allocCtx, b.cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return nil
}

// Stop closes the browser
func (b *Browser) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

// FetchHTML navigates to a URL and returns the rendered page HTML
// after the body is ready and scripts have had time to populate it.
func (b *Browser) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	taskCtx, cancel := chromedp.NewContext(b.allocCtx)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, 45*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	return html, nil
}
