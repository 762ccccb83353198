package session

import (
	"context"

	"github.com/chromedp/cdproto/network"
)

// Driver is the narrow browser surface the session and publisher need.
// Every call honors the caller's context, so all waits stay bounded and
// cancellable.
type Driver interface {
	// Navigate loads a URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the first element matching query is visible.
	WaitVisible(ctx context.Context, query string) error
	// Click clicks the first element matching query.
	Click(ctx context.Context, query string) error
	// ClearAndType replaces the content of the element matching query.
	ClearAndType(ctx context.Context, query, text string) error
	// SetUploadFiles attaches local files to a file input matching query.
	SetUploadFiles(ctx context.Context, query string, paths []string) error
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// Cookies returns all cookies of the browser context.
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	// SetCookies injects cookies into the browser context.
	SetCookies(ctx context.Context, cookies []*network.Cookie) error
	// Close tears down the browser context.
	Close() error
}
