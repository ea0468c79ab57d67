// File: internal/netclient/client.go
package netclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/scoutflow/credverify/internal/config"
)

// Connection pool settings tuned for a small number of concurrent
// verifications against a handful of upstream hosts.
const (
	defaultKeepAlive       = 15 * time.Second
	defaultMaxIdleConns    = 20
	defaultIdleConnTimeout = 30 * time.Second
)

// NewTransport builds an http.Transport from the network configuration,
// wrapped with transparent response decompression and a browser User-Agent.
// Many upstream platforms reject requests without a realistic User-Agent, so
// it is applied at the transport layer where no call site can forget it.
func NewTransport(cfg config.NetworkConfig, logger *zap.Logger) http.RoundTripper {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: defaultKeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       newTLSConfig(cfg.IgnoreTLSErrors),
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConns,
		IdleConnTimeout:       defaultIdleConnTimeout,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
	}

	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	}

	return &headerTransport{
		userAgent: cfg.UserAgent,
		next:      NewDecompressionMiddleware(transport),
	}
}

// NewClient wraps the transport in an http.Client that never follows
// redirects on its own. Redirect handling belongs to the strategy layer: the
// login API call must observe 3xx responses directly, and the prober decides
// for itself how far to chase a Location header.
func NewClient(cfg config.NetworkConfig, logger *zap.Logger) *http.Client {
	return &http.Client{
		Transport: NewTransport(cfg, logger),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// newTLSConfig enforces TLS 1.2+ with modern cipher suites.
func newTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
		ClientSessionCache: tls.NewLRUClientSessionCache(64),
		InsecureSkipVerify: insecure,
	}
}

// headerTransport stamps the configured User-Agent onto every outbound
// request unless the caller already set one.
type headerTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(req)
}
