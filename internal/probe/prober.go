// File: internal/probe/prober.go
package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Probe responses are capped; the landing page markup is all that matters.
const maxBodyBytes = 512 * 1024

// Report describes what a diagnostic probe saw. It never carries an
// authentication verdict; it exists to enrich network-error outcomes with
// "is the site even up" context.
type Report struct {
	URL                string        `json:"url"`
	Reachable          bool          `json:"reachable"`
	StatusCode         int           `json:"status_code,omitempty"`
	ResponseTime       time.Duration `json:"-"`
	ResponseTimeMs     int64         `json:"response_time_ms"`
	LoginLinkFound     bool          `json:"login_link_found"`
	RuntimeConfigFound bool          `json:"runtime_config_found"`
	Error              string        `json:"error,omitempty"`
}

// Summary renders the report as a single diagnostic line.
func (r Report) Summary() string {
	if !r.Reachable {
		return fmt.Sprintf("probe: %s unreachable (%s)", r.URL, r.Error)
	}
	return fmt.Sprintf("probe: %s status=%d in %dms login_link=%t runtime_config=%t",
		r.URL, r.StatusCode, r.ResponseTimeMs, r.LoginLinkFound, r.RuntimeConfigFound)
}

// Prober fetches a platform's public landing page and inspects it for DOM
// markers. GET only; no credentials are ever transmitted here.
type Prober struct {
	client *http.Client
	logger *zap.Logger
}

// New builds a Prober. Probe GETs are idempotent, so transient failures are
// retried a couple of times before the page is declared unreachable.
func New(transport http.RoundTripper, logger *zap.Logger) *Prober {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{Transport: transport}
	// When retries are exhausted, hand back the last response instead of
	// swallowing it; a page that keeps answering 503 is still reachable.
	rc.ErrorHandler = func(resp *http.Response, err error, _ int) (*http.Response, error) {
		return resp, err
	}

	return &Prober{
		client: rc.StandardClient(),
		logger: logger.Named("probe"),
	}
}

// Probe fetches url and reports reachability plus whether a login link and
// the platform's runtime-config marker are present in the served markup.
func (p *Prober) Probe(ctx context.Context, url, runtimeConfigMarker string) Report {
	report := Report{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	report.ResponseTime = time.Since(start)
	report.ResponseTimeMs = report.ResponseTime.Milliseconds()
	if err != nil {
		report.Error = err.Error()
		p.logger.Debug("Probe target unreachable", zap.String("url", url), zap.Error(err))
		return report
	}
	defer resp.Body.Close()

	report.Reachable = true
	report.StatusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		report.Error = fmt.Sprintf("reading body: %v", err)
		return report
	}

	if runtimeConfigMarker != "" {
		report.RuntimeConfigFound = bytes.Contains(body, []byte(runtimeConfigMarker))
	}
	report.LoginLinkFound = hasLoginLink(body)

	p.logger.Debug("Probe completed",
		zap.String("url", url),
		zap.Int("status", report.StatusCode),
		zap.Int64("response_time_ms", report.ResponseTimeMs),
		zap.Bool("login_link", report.LoginLinkFound))
	return report
}

// hasLoginLink scans anchors and form actions for a login-ish target.
func hasLoginLink(body []byte) bool {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return false
	}

	nodes, err := htmlquery.QueryAll(doc, "//a[@href] | //form[@action]")
	if err != nil {
		return false
	}
	for _, n := range nodes {
		target := htmlquery.SelectAttr(n, "href")
		if target == "" {
			target = htmlquery.SelectAttr(n, "action")
		}
		lower := strings.ToLower(target)
		if strings.Contains(lower, "login") || strings.Contains(lower, "signin") || strings.Contains(lower, "sign-in") {
			return true
		}
	}
	return false
}
