// File: internal/apilogin/client.go
package apilogin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/internal/observability"
	"github.com/scoutflow/credverify/internal/platform"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Upstream bodies kept for diagnostics are capped at this many bytes.
const maxBodyBytes = 64 * 1024

// TransportError means no usable HTTP response was received: DNS failure,
// connection refused, TLS failure, or the context deadline aborting the
// in-flight request. It says nothing about the credentials.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("login API unreachable: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError means the upstream answered and the answer was negative.
// Status carries the semantic signal (401, 423, 429, 503, ...).
type RejectedError struct {
	Status int
	Body   string
	// RetryAfter echoes the upstream Retry-After header when present, useful
	// on 429 responses.
	RetryAfter string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("login API rejected request with status %d", e.Status)
}

// Result is a positive response from the login API.
type Result struct {
	Status        int
	Body          string
	Authenticated bool
}

// Client issues direct authentication calls against a platform's login API.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client on top of the shared outbound HTTP client.
func New(httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		http:   httpClient,
		logger: logger.Named("apilogin"),
	}
}

// Login POSTs the credential pair to the platform's login API. The payload
// field names come from the profile; they are configuration, not logic. The
// caller bounds the call with ctx; when the deadline elapses the in-flight
// request is aborted, not abandoned.
func (c *Client) Login(ctx context.Context, profile platform.Profile, username, password string) (*Result, error) {
	if !profile.HasLoginAPI() {
		return nil, fmt.Errorf("platform %s has no direct login API", profile.Platform)
	}

	payload, err := json.Marshal(map[string]string{
		profile.UserField: username,
		profile.PassField: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, profile.APILoginURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Calling login API",
		zap.String("platform", string(profile.Platform)),
		zap.String("username", username))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Login API rejected the attempt",
			zap.String("platform", string(profile.Platform)),
			zap.Int("status", resp.StatusCode),
			zap.String("body", observability.RedactBody(string(body), 512)))
		return nil, &RejectedError{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	return &Result{
		Status:        resp.StatusCode,
		Body:          string(body),
		Authenticated: c.successField(profile, body),
	}, nil
}

// successField checks the platform-specific success flag in a 2xx body.
// A 2xx with the flag absent or false is not proof of an authenticated
// session; some upstreams answer 200 to every login attempt.
func (c *Client) successField(profile platform.Profile, body []byte) bool {
	if profile.SuccessField == "" {
		return true
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Debug("Login API returned a non-JSON 2xx body", zap.Error(err))
		return false
	}
	flag, ok := parsed[profile.SuccessField].(bool)
	return ok && flag
}
