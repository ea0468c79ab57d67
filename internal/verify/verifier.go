// Package verify owns the verification pipeline: choose a strategy for the
// requested platform, run it under the configured deadlines and pacing, and
// reduce whatever happens to one normalized outcome. Verify never returns an
// error and never panics outward; callers always get a well-formed outcome.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/apilogin"
	"github.com/scoutflow/credverify/internal/config"
	"github.com/scoutflow/credverify/internal/platform"
	"github.com/scoutflow/credverify/internal/probe"
)

// APIClient is the direct login API strategy.
type APIClient interface {
	Login(ctx context.Context, profile platform.Profile, username, password string) (*apilogin.Result, error)
}

// BrowserAuthenticator is the interactive browser strategy.
type BrowserAuthenticator interface {
	Authenticate(ctx context.Context, profile platform.Profile, username, password string) schemas.VerificationOutcome
}

// PageProber collects reachability diagnostics; it never decides outcomes.
type PageProber interface {
	Probe(ctx context.Context, url, runtimeConfigMarker string) probe.Report
}

// Verifier routes verification requests to the right strategy per platform.
type Verifier struct {
	cfg    config.VerifierConfig
	logger *zap.Logger

	api     APIClient
	prober  PageProber
	browser BrowserAuthenticator

	profiles map[schemas.Platform]platform.Profile

	// slots caps concurrent live browsers; limiters pace outbound attempts
	// per platform so verification traffic never looks like a spray.
	slots    *semaphore.Weighted
	limiters map[schemas.Platform]*rate.Limiter
}

// New resolves the platform profiles against config overrides and assembles
// the pipeline.
func New(cfg *config.Config, logger *zap.Logger, api APIClient, prober PageProber, browser BrowserAuthenticator) (*Verifier, error) {
	profiles := make(map[schemas.Platform]platform.Profile)
	limiters := make(map[schemas.Platform]*rate.Limiter)
	for _, p := range platform.Supported() {
		profile, err := platform.Resolve(p, cfg.Platforms)
		if err != nil {
			return nil, fmt.Errorf("resolving platform %s: %w", p, err)
		}
		profiles[p] = profile
		limiters[p] = rate.NewLimiter(rate.Limit(cfg.Verifier.RateLimit), cfg.Verifier.RateLimitBurst)
	}

	return &Verifier{
		cfg:      cfg.Verifier,
		logger:   logger.Named("verify"),
		api:      api,
		prober:   prober,
		browser:  browser,
		profiles: profiles,
		slots:    semaphore.NewWeighted(int64(cfg.Verifier.BrowserSlots)),
		limiters: limiters,
	}, nil
}

// Verify checks one credential pair. The call is bounded by the overall
// timeout regardless of which strategies run, and the same request always
// takes the same path: retrying a failed verification re-runs it, nothing
// is cached or remembered between calls.
func (v *Verifier) Verify(ctx context.Context, req schemas.VerificationRequest) (outcome schemas.VerificationOutcome) {
	log := v.logger.With(
		zap.String("platform", string(req.Platform)),
		zap.String("username", req.Username),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Verification panicked.", zap.Any("panic", r))
			outcome = schemas.NewOutcome(schemas.CodeProcessingError,
				"verification failed due to an internal error")
		}
	}()

	// Preflight checks happen before any network traffic.
	profile, ok := v.profiles[req.Platform]
	if !ok {
		return schemas.NewOutcome(schemas.CodeProcessingError,
			fmt.Sprintf("unsupported platform %q", req.Platform))
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return schemas.NewOutcome(schemas.CodeMissingCredentials,
			"both username and password are required")
	}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.OverallTimeout)
	defer cancel()

	if err := v.limiters[req.Platform].Wait(ctx); err != nil {
		log.Warn("Verification expired while paced by the local rate limiter.")
		return schemas.NewOutcome(schemas.CodeNetworkError,
			"verification timed out before the platform was contacted")
	}

	if profile.HasLoginAPI() {
		return v.verifyViaAPI(ctx, log, profile, req)
	}
	return v.verifyViaBrowser(ctx, log, profile, req)
}

// verifyViaAPI runs the direct API strategy. Semantic rejections are final;
// only transport failures may escalate, and only when the operator opted in.
func (v *Verifier) verifyViaAPI(ctx context.Context, log *zap.Logger, profile platform.Profile, req schemas.VerificationRequest) schemas.VerificationOutcome {
	apiCtx, cancel := context.WithTimeout(ctx, v.cfg.APITimeout)
	defer cancel()

	result, err := v.api.Login(apiCtx, profile, req.Username, req.Password)
	if err == nil {
		if result.Authenticated {
			log.Info("Credentials verified via login API.")
			return schemas.NewOutcome(schemas.CodeAuthSuccess, "authentication succeeded")
		}
		log.Info("Login API rejected the credentials in a 2xx body.")
		return schemas.NewOutcome(schemas.CodeAuthFailed,
			"the platform rejected the username or password")
	}

	var rejected *apilogin.RejectedError
	if errors.As(err, &rejected) {
		log.Info("Login API rejected the request.", zap.Int("status", rejected.Status))
		return outcomeForRejection(rejected)
	}

	var transport *apilogin.TransportError
	if !errors.As(err, &transport) {
		// Request construction failed before anything left the process.
		log.Error("Login API call failed before any request was sent.", zap.Error(err))
		return schemas.NewOutcome(schemas.CodeProcessingError,
			"verification failed due to an internal error")
	}

	log.Warn("Login API unreachable.", zap.Error(transport.Err))

	if v.cfg.AutomationFallback {
		log.Info("Escalating to browser automation after transport failure.")
		return v.verifyViaBrowser(ctx, log, profile, req)
	}

	// No escalation: report the transport failure with page diagnostics so
	// operators can tell a dead upstream from a broken egress path.
	probeCtx, cancelProbe := context.WithTimeout(ctx, v.cfg.ProbeTimeout)
	defer cancelProbe()
	report := v.prober.Probe(probeCtx, profile.LoginURL, profile.RuntimeConfigMarker)

	out := schemas.NewOutcome(schemas.CodeNetworkError,
		fmt.Sprintf("could not reach the %s login API", profile.Platform))
	out.Diagnostic = report.Summary()
	return out
}

// verifyViaBrowser runs the interactive strategy under the browser slot cap.
func (v *Verifier) verifyViaBrowser(ctx context.Context, log *zap.Logger, profile platform.Profile, req schemas.VerificationRequest) schemas.VerificationOutcome {
	if err := v.slots.Acquire(ctx, 1); err != nil {
		log.Warn("Verification expired waiting for a browser slot.")
		return schemas.NewOutcome(schemas.CodeAutomationFailed,
			"verification timed out waiting for a browser slot")
	}
	defer v.slots.Release(1)

	return v.browser.Authenticate(ctx, profile, req.Username, req.Password)
}
