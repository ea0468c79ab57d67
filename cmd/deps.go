package cmd

import (
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/internal/apilogin"
	"github.com/scoutflow/credverify/internal/browserauth"
	"github.com/scoutflow/credverify/internal/config"
	"github.com/scoutflow/credverify/internal/netclient"
	"github.com/scoutflow/credverify/internal/probe"
	"github.com/scoutflow/credverify/internal/verify"
)

// buildVerifier assembles the full verification pipeline from configuration.
// Shared by the serve and verify commands so both run the identical stack.
func buildVerifier(cfg *config.Config, logger *zap.Logger) (*verify.Verifier, error) {
	transport := netclient.NewTransport(cfg.Network, logger)
	httpClient := netclient.NewClient(cfg.Network, logger)

	apiClient := apilogin.New(httpClient, logger)
	prober := probe.New(transport, logger)
	launcher := browserauth.NewChromeLauncher(logger, cfg)
	authenticator := browserauth.New(launcher, cfg.Browser, logger)

	return verify.New(cfg, logger, apiClient, prober, authenticator)
}
