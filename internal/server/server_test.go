package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 2 * time.Second,
		AllowedOrigins:  []string{"https://dashboard.example.com"},
	}
}

func newTestServer(verifier CredentialVerifier) *Server {
	handlers := NewHandlers(zap.NewNop(), verifier, nil)
	return New(testServerConfig(), zap.NewNop(), handlers)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(&stubVerifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// Give the listener a moment to come up, then signal shutdown.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestRunFailsOnUnusableAddr(t *testing.T) {
	cfg := testServerConfig()
	cfg.Addr = "256.256.256.256:80"
	srv := New(cfg, zap.NewNop(), NewHandlers(zap.NewNop(), &stubVerifier{}, nil))

	err := srv.Run(context.Background())
	require.Error(t, err)
}

func TestRouterAppliesCORSHeaders(t *testing.T) {
	srv := newTestServer(&stubVerifier{
		outcome: schemas.NewOutcome(schemas.CodeAuthSuccess, "authentication succeeded"),
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/verify", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	assert.Equal(t, "https://dashboard.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(&stubVerifier{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/verify", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

type panickyVerifier struct{}

func (panickyVerifier) Verify(ctx context.Context, req schemas.VerificationRequest) schemas.VerificationOutcome {
	panic("handler blew up")
}

func TestRouterRecoversFromHandlerPanic(t *testing.T) {
	srv := newTestServer(panickyVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify",
		strings.NewReader(`{"platform":"airwork","username":"a","password":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		srv.httpServer.Handler.ServeHTTP(rr, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
