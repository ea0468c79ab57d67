// Package browserauth verifies credentials by driving a real browser through
// a platform's login form. It is the strategy of last resort: slower and more
// fragile than a direct API call, but the only option for platforms that
// expose no login endpoint.
package browserauth

import (
	"context"
	"errors"

	"github.com/scoutflow/credverify/internal/platform"
)

// ErrBrowserUnavailable reports that no usable browser binary could be found
// on this host. Callers translate it into a distinct outcome so operators can
// tell a missing Chrome install apart from a failed login attempt.
var ErrBrowserUnavailable = errors.New("browserauth: no browser binary available")

// InputHint describes one <input> element found on the current page. Used as
// the raw material for heuristic field discovery when every configured
// locator misses.
type InputHint struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Session is one isolated browser tab plus the process behind it. Every
// method honors the deadline of the context it receives; a cancelled context
// aborts the in-flight CDP command rather than letting it run to completion.
//
// Implementations must make Close safe to call exactly once on every exit
// path, including after a prior method returned an error.
type Session interface {
	// Navigate loads the URL and waits for the document body to be ready.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the locator matches a visible element.
	WaitVisible(ctx context.Context, loc platform.Locator) error

	// SendKeys focuses the element and types the value as key events, the
	// way a user would. Script frameworks that listen for input events see
	// the keystrokes.
	SendKeys(ctx context.Context, loc platform.Locator, value string) error

	// Click dispatches a mouse click on the element.
	Click(ctx context.Context, loc platform.Locator) error

	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)

	// Exists reports whether the CSS selector matches at least one element.
	Exists(ctx context.Context, selector string) (bool, error)

	// Text returns the trimmed text content of the first element matching
	// the CSS selector, or "" when nothing matches.
	Text(ctx context.Context, selector string) (string, error)

	// InputHints lists every input element on the current page.
	InputHints(ctx context.Context) ([]InputHint, error)

	// Close tears down the tab and the browser process behind it.
	Close() error
}

// Launcher produces fresh, isolated browser sessions. Each verification
// attempt gets its own browser process so that cookies, storage, and crashes
// never leak between attempts.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
