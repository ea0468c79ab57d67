package browserauth

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/internal/config"
	"github.com/scoutflow/credverify/internal/platform"
)

const launchTimeout = 30 * time.Second

// wellKnownBinaries are probed in order when no exec_path is configured.
var wellKnownBinaries = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// ChromeLauncher starts one dedicated Chrome process per Launch call via
// chromedp. Isolation over reuse: a wedged renderer from one attempt must
// never poison the next.
type ChromeLauncher struct {
	logger    *zap.Logger
	browser   config.BrowserConfig
	userAgent string
}

// NewChromeLauncher builds a launcher from the browser and network sections
// of the configuration.
func NewChromeLauncher(logger *zap.Logger, cfg *config.Config) *ChromeLauncher {
	return &ChromeLauncher{
		logger:    logger.Named("chrome_launcher"),
		browser:   cfg.Browser,
		userAgent: cfg.Network.UserAgent,
	}
}

// resolveBinary locates a usable browser executable. A configured exec_path
// wins; otherwise the well-known names are searched on PATH.
func (l *ChromeLauncher) resolveBinary() (string, error) {
	if l.browser.ExecPath != "" {
		path, err := exec.LookPath(l.browser.ExecPath)
		if err != nil {
			return "", fmt.Errorf("%w: configured exec_path %q not usable: %v",
				ErrBrowserUnavailable, l.browser.ExecPath, err)
		}
		return path, nil
	}
	for _, name := range wellKnownBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrBrowserUnavailable
}

// Launch starts a fresh browser process and verifies it is responsive before
// handing the session to the caller.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	binary, err := l.resolveBinary()
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions(binary)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run a trivial task so a broken install fails here, not mid-login.
	startCtx, cancelStart := context.WithTimeout(browserCtx, launchTimeout)
	defer cancelStart()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	l.logger.Debug("Browser process launched.", zap.String("binary", binary))
	return &chromeSession{
		ctx:           browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

// allocatorOptions assembles launch flags, starting from chromedp's defaults
// with the automation giveaway flags stripped.
func (l *ChromeLauncher) allocatorOptions(binary string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		// A false bool flag is dropped from the command line, which
		// strips the automation giveaway flag from the defaults.
		chromedp.Flag("enable-automation", false),
		chromedp.ExecPath(binary),
		chromedp.Flag("headless", l.browser.Headless),
		chromedp.Flag("ignore-certificate-errors", l.browser.IgnoreTLSErrors),
		// Keeps navigator.webdriver false so login pages treat the
		// session as a regular browser.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", l.browser.Headless),
		chromedp.UserAgent(l.userAgent),
	)

	if l.browser.NoSandbox {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	// Operator-supplied flags from config.yaml, "--name=value" or "--name".
	for _, arg := range l.browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	return opts
}

// chromeSession binds a chromedp tab context to the allocator that owns its
// process.
type chromeSession struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// run executes actions on the session's browser context while honoring the
// caller context's deadline and cancellation. chromedp only aborts work when
// the context it runs under dies, so the caller's signals are grafted onto a
// child of the browser context.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's cancellation, not the derived context's.
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		return err
	}
	return nil
}

func queryOption(loc platform.Locator) chromedp.QueryOption {
	if loc.Kind == platform.ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
}

func (s *chromeSession) WaitVisible(ctx context.Context, loc platform.Locator) error {
	return s.run(ctx, chromedp.WaitVisible(loc.Query, queryOption(loc)))
}

func (s *chromeSession) SendKeys(ctx context.Context, loc platform.Locator, value string) error {
	return s.run(ctx,
		chromedp.Clear(loc.Query, queryOption(loc)),
		chromedp.SendKeys(loc.Query, value, queryOption(loc)),
	)
}

func (s *chromeSession) Click(ctx context.Context, loc platform.Locator) error {
	return s.run(ctx, chromedp.Click(loc.Query, queryOption(loc)))
}

func (s *chromeSession) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (s *chromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (s *chromeSession) Text(ctx context.Context, selector string) (string, error) {
	var text string
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.textContent.trim() : ""; })()`,
		selector)
	if err := s.run(ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *chromeSession) InputHints(ctx context.Context) ([]InputHint, error) {
	var hints []InputHint
	const script = `Array.from(document.querySelectorAll("input")).map(el => ({
		type: el.type || "", name: el.name || "", id: el.id || ""
	}))`
	if err := s.run(ctx, chromedp.Evaluate(script, &hints)); err != nil {
		return nil, err
	}
	return hints, nil
}

// Close shuts the tab down gracefully, then releases the process. Safe to
// call after any failed method; cancellation is idempotent.
func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelBrowser()
	s.cancelAlloc()
	return err
}
