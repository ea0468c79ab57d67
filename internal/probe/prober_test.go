package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestProbeReachablePage(t *testing.T) {
	const page = `<html><head><script>window.__AIRPLF_CONFIG__ = {};</script></head>
<body><a href="/airplf/login">ログイン</a></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(page))
	}))
	defer srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "window.__AIRPLF_CONFIG__")

	assert.True(t, report.Reachable)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.True(t, report.LoginLinkFound)
	assert.True(t, report.RuntimeConfigFound)
	assert.Empty(t, report.Error)
	assert.Contains(t, report.Summary(), "login_link=true")
}

func TestProbeDetectsFormAction(t *testing.T) {
	const page = `<html><body><form action="/company_login/signin" method="post"></form></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "")

	assert.True(t, report.LoginLinkFound)
	assert.False(t, report.RuntimeConfigFound)
}

func TestProbeNoMarkers(t *testing.T) {
	const page = `<html><body><a href="/about">About us</a></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "window.__ENGAGE_ENV__")

	assert.True(t, report.Reachable)
	assert.False(t, report.LoginLinkFound)
	assert.False(t, report.RuntimeConfigFound)
}

func TestProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "")

	assert.False(t, report.Reachable)
	assert.NotEmpty(t, report.Error)
	assert.Contains(t, report.Summary(), "unreachable")
}

func TestProbeRetriesTransientFailures(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`<a href="/login">login</a>`))
	}))
	defer srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "")

	assert.True(t, report.Reachable)
	assert.Equal(t, http.StatusOK, report.StatusCode)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestProbeRecordsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	p := New(http.DefaultTransport, zap.NewNop())
	report := p.Probe(context.Background(), srv.URL, "")

	// A 503 still answered; reachability and status are reported separately.
	assert.True(t, report.Reachable)
	assert.Equal(t, http.StatusServiceUnavailable, report.StatusCode)
}
