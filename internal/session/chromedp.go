package session

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/propline/promopost/internal/browser"
)

// ChromedpDriver implements Driver on a chromedp browser context.
type ChromedpDriver struct {
	browserCtx  context.Context
	cancelOrder []context.CancelFunc
}

// NewChromedpDriver launches a browser with the shared stealth options. The
// parent context bounds the lifetime of the whole browser.
func NewChromedpDriver(parent context.Context, headless bool) *ChromedpDriver {
	opts := browser.Options(headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &ChromedpDriver{
		browserCtx:  browserCtx,
		cancelOrder: []context.CancelFunc{browserCancel, allocCancel},
	}
}

// run executes chromedp actions against the browser context while honoring
// the caller's context for cancellation and deadlines.
func (d *ChromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Surface the caller's cancellation instead of chromedp's wrap.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (d *ChromedpDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *ChromedpDriver) WaitVisible(ctx context.Context, query string) error {
	return d.run(ctx,
		chromedp.WaitVisible(query, chromedp.ByQuery),
		chromedp.WaitEnabled(query, chromedp.ByQuery),
	)
}

func (d *ChromedpDriver) Click(ctx context.Context, query string) error {
	return d.run(ctx, chromedp.Click(query, chromedp.ByQuery))
}

func (d *ChromedpDriver) ClearAndType(ctx context.Context, query, text string) error {
	return d.run(ctx,
		chromedp.Click(query, chromedp.ByQuery),
		chromedp.Clear(query, chromedp.ByQuery),
		chromedp.SendKeys(query, text, chromedp.ByQuery),
	)
}

func (d *ChromedpDriver) SetUploadFiles(ctx context.Context, query string, paths []string) error {
	return d.run(ctx, chromedp.SetUploadFiles(query, paths, chromedp.ByQuery))
}

func (d *ChromedpDriver) Location(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

func (d *ChromedpDriver) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

func (d *ChromedpDriver) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

// ProbeFunc adapts the driver's visibility wait to the selector resolver.
func (d *ChromedpDriver) ProbeFunc() func(ctx context.Context, query string) error {
	return d.WaitVisible
}

func (d *ChromedpDriver) Close() error {
	for _, cancel := range d.cancelOrder {
		cancel()
	}
	return nil
}
