package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

// browserTimeout gives rendered fetches more headroom than plain transport
// attempts: the page has to load and execute its scripts.
const browserTimeout = 30 * time.Second

// FetchRendered retrieves the URL through a headless browser and yields a
// document result, for pages that only materialize under JavaScript. It is
// a single-attempt backend: no scheme-flip retry, failures are recorded the
// same way transport failures are. Requires Chrome or Chromium on the host.
func (c *Crawler) FetchRendered(ctx context.Context, rawURL string, opts FetchOptions) *Result {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = browserTimeout
	}

	rendered, err := c.renderPage(ctx, rawURL, timeout)
	if err != nil {
		c.log.ErrorContext(ctx, "browser fetch failed",
			"url", rawURL, "entity_id", opts.EntityID, "err", err,
		)
		c.record(err.Error(), rawURL, opts.EntityID, "")
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		c.record(err.Error(), rawURL, opts.EntityID, "")
		return nil
	}

	c.log.InfoContext(ctx, "fetched rendered page",
		"url", rawURL, "bytes", len(rendered),
	)
	return NewDocumentResult(doc, []byte(rendered), rawURL, "utf-8")
}

func (c *Crawler) renderPage(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	options := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if ua := c.headers["User-Agent"]; ua != "" {
		options = append(options, chromedp.UserAgent(ua))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, options...)
	defer cancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return "", err
	}
	return rendered, nil
}
