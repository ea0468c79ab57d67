package browserauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/config"
	"github.com/scoutflow/credverify/internal/platform"
)

const (
	// locateTimeout bounds the wait for a single locator candidate before
	// falling through to the next one in the list.
	locateTimeout = 4 * time.Second

	// settlePoll is the interval at which the post-submit page is checked
	// for a success or failure marker.
	settlePoll = 500 * time.Millisecond
)

// submitFallbacks are tried when every configured submit locator misses.
var submitFallbacks = []platform.Locator{
	{Kind: platform.ByCSS, Query: `button[type="submit"]`},
	{Kind: platform.ByCSS, Query: `input[type="submit"]`},
	{Kind: platform.ByCSS, Query: `form button`},
}

// Authenticator performs a full interactive login attempt against a
// platform's login page and reduces what it observes to a single outcome.
// It never returns an error: every failure mode, including panics in the
// browser-control layer, maps to a normalized outcome.
type Authenticator struct {
	launcher Launcher
	cfg      config.BrowserConfig
	logger   *zap.Logger
}

// New wires an Authenticator to a session launcher.
func New(launcher Launcher, cfg config.BrowserConfig, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger.Named("browserauth"),
	}
}

// Authenticate drives one login attempt: navigate, locate the form, type the
// credentials, submit, and read the page's verdict. The session is released
// on every exit path. The password never appears in logs or outcomes.
func (a *Authenticator) Authenticate(ctx context.Context, profile platform.Profile, username, password string) (outcome schemas.VerificationOutcome) {
	log := a.logger.With(
		zap.String("platform", string(profile.Platform)),
		zap.String("username", username),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Browser authentication panicked.", zap.Any("panic", r))
			outcome = schemas.NewOutcome(schemas.CodeProcessingError,
				"verification failed due to an internal error")
		}
	}()

	session, err := a.launcher.Launch(ctx)
	if err != nil {
		if errors.Is(err, ErrBrowserUnavailable) {
			log.Warn("No browser binary available for automation.", zap.Error(err))
			return schemas.NewOutcome(schemas.CodeAutomationUnavailable,
				"browser automation is not available on this host")
		}
		log.Error("Browser launch failed.", zap.Error(err))
		return schemas.NewOutcome(schemas.CodeAutomationFailed,
			"failed to launch the automation browser")
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("Browser session close reported an error.", zap.Error(cerr))
		}
	}()

	// Stage 1: load the login page.
	navCtx, cancelNav := context.WithTimeout(ctx, a.cfg.NavigationTimeout)
	defer cancelNav()
	if err := session.Navigate(navCtx, profile.LoginURL); err != nil {
		log.Warn("Login page failed to load.", zap.String("url", profile.LoginURL), zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return schemas.NewOutcome(schemas.CodeNetworkError,
				"the login page did not load in time")
		}
		return schemas.NewOutcome(schemas.CodeNetworkError,
			"could not reach the login page")
	}

	// Stage 2: locate the three form elements, falling back down each
	// candidate list and then to heuristics.
	userLoc, err := a.locate(ctx, session, profile.Form.Username, fieldUsername)
	if err != nil {
		return a.formNotFound(log, "username", err)
	}
	passLoc, err := a.locate(ctx, session, profile.Form.Password, fieldPassword)
	if err != nil {
		return a.formNotFound(log, "password", err)
	}
	submitLoc, err := a.locate(ctx, session, append(profile.Form.Submit, submitFallbacks...), fieldSubmit)
	if err != nil {
		return a.formNotFound(log, "submit", err)
	}

	// Stage 3: fill and submit.
	if err := session.SendKeys(ctx, userLoc, username); err != nil {
		return a.interactionFailed(ctx, log, "typing the username", err)
	}
	if err := session.SendKeys(ctx, passLoc, password); err != nil {
		return a.interactionFailed(ctx, log, "typing the password", err)
	}
	if err := session.Click(ctx, submitLoc); err != nil {
		return a.interactionFailed(ctx, log, "submitting the form", err)
	}

	// Stage 4: wait for the page to settle and read the verdict.
	return a.evaluate(ctx, log, session, profile)
}

func (a *Authenticator) formNotFound(log *zap.Logger, field string, err error) schemas.VerificationOutcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Form discovery aborted by deadline.", zap.String("field", field))
		return schemas.NewOutcome(schemas.CodeNavigationTimeout,
			"verification timed out while inspecting the login form")
	}
	log.Warn("Login form element not found.", zap.String("field", field), zap.Error(err))
	return schemas.NewOutcome(schemas.CodeFormNotFound,
		fmt.Sprintf("could not locate the %s field on the login page", field))
}

func (a *Authenticator) interactionFailed(ctx context.Context, log *zap.Logger, step string, err error) schemas.VerificationOutcome {
	if ctx.Err() != nil {
		log.Warn("Form interaction aborted by deadline.", zap.String("step", step))
		return schemas.NewOutcome(schemas.CodeNavigationTimeout,
			"verification timed out while operating the login form")
	}
	log.Error("Form interaction failed.", zap.String("step", step), zap.Error(err))
	return schemas.NewOutcome(schemas.CodeAutomationFailed,
		fmt.Sprintf("browser automation failed while %s", step))
}

type formField int

const (
	fieldUsername formField = iota
	fieldPassword
	fieldSubmit
)

// locate tries each candidate locator in order with a short visibility wait,
// then falls back to scanning the page's inputs when the field still has not
// been found. Context cancellation is surfaced as-is so callers can tell a
// timeout apart from a genuinely missing form.
func (a *Authenticator) locate(ctx context.Context, session Session, candidates []platform.Locator, field formField) (platform.Locator, error) {
	for _, loc := range candidates {
		if ctx.Err() != nil {
			return platform.Locator{}, ctx.Err()
		}
		stepCtx, cancel := context.WithTimeout(ctx, locateTimeout)
		err := session.WaitVisible(stepCtx, loc)
		cancel()
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return platform.Locator{}, ctx.Err()
		}
	}

	if field == fieldSubmit {
		return platform.Locator{}, errors.New("no submit control matched any candidate")
	}

	hints, err := session.InputHints(ctx)
	if err != nil {
		return platform.Locator{}, fmt.Errorf("input scan failed: %w", err)
	}
	if loc, ok := heuristicLocator(hints, field); ok {
		return loc, nil
	}
	return platform.Locator{}, errors.New("no input matched any candidate or heuristic")
}

// heuristicLocator guesses a field from the page's raw inputs: the first
// password-typed input is the password, and the first text-like input is the
// username.
func heuristicLocator(hints []InputHint, field formField) (platform.Locator, bool) {
	for _, h := range hints {
		switch field {
		case fieldPassword:
			if h.Type == "password" {
				return locatorForHint(h), true
			}
		case fieldUsername:
			switch h.Type {
			case "text", "email", "tel", "":
				return locatorForHint(h), true
			}
		}
	}
	return platform.Locator{}, false
}

func locatorForHint(h InputHint) platform.Locator {
	switch {
	case h.ID != "":
		return platform.Locator{Kind: platform.ByCSS, Query: fmt.Sprintf(`input[id=%q]`, h.ID)}
	case h.Name != "":
		return platform.Locator{Kind: platform.ByCSS, Query: fmt.Sprintf(`input[name=%q]`, h.Name)}
	default:
		return platform.Locator{Kind: platform.ByCSS, Query: fmt.Sprintf(`input[type=%q]`, h.Type)}
	}
}

// evaluate polls the post-submit page for a verdict until the submit window
// closes. Absence of a success marker is never treated as success.
func (a *Authenticator) evaluate(ctx context.Context, log *zap.Logger, session Session, profile platform.Profile) schemas.VerificationOutcome {
	settleCtx, cancel := context.WithTimeout(ctx, a.cfg.SubmitTimeout)
	defer cancel()

	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()

	var lastURL string
	for {
		currentURL, err := session.Location(settleCtx)
		if err == nil {
			lastURL = currentURL
		}

		if profile.SuccessURLSubstring != "" && strings.Contains(lastURL, profile.SuccessURLSubstring) {
			log.Info("Authentication confirmed by redirect.", zap.String("url", lastURL))
			out := schemas.NewOutcome(schemas.CodeAuthSuccess, "authentication succeeded")
			out.ObservedURL = lastURL
			return out
		}

		if profile.SuccessSelector != "" {
			if found, err := session.Exists(settleCtx, profile.SuccessSelector); err == nil && found {
				log.Info("Authentication confirmed by page marker.", zap.String("url", lastURL))
				out := schemas.NewOutcome(schemas.CodeAuthSuccess, "authentication succeeded")
				out.ObservedURL = lastURL
				return out
			}
		}

		if profile.ErrorSelector != "" {
			if msg, err := session.Text(settleCtx, profile.ErrorSelector); err == nil && msg != "" {
				log.Info("Platform rejected the credentials.", zap.String("url", lastURL))
				out := schemas.NewOutcome(schemas.CodeAuthFailed, msg)
				out.ObservedURL = lastURL
				return out
			}
		}

		select {
		case <-settleCtx.Done():
			if ctx.Err() != nil {
				log.Warn("Verification aborted before the page settled.")
				return schemas.NewOutcome(schemas.CodeNavigationTimeout,
					"verification timed out waiting for the login result")
			}
			if lastURL == "" {
				// The page never became observable: the post-submit
				// navigation stalled rather than settling.
				log.Warn("Post-submit navigation never resolved.")
				return schemas.NewOutcome(schemas.CodeNavigationTimeout,
					"the page did not respond after the login form was submitted")
			}
			// The page settled without showing either marker. Absence
			// of proof of success is a failure, but nothing on the
			// page blamed the credentials.
			log.Warn("No success or failure marker appeared after submit.",
				zap.String("url", lastURL))
			out := schemas.NewOutcome(schemas.CodeUnconfirmed,
				"could not confirm the authentication result")
			out.ObservedURL = lastURL
			return out
		case <-ticker.C:
		}
	}
}
