package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutflow/credverify/internal/observability"
	"github.com/scoutflow/credverify/internal/server"
	"github.com/scoutflow/credverify/internal/store"
)

// newServeCommand runs the verification API server.
func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the credential verification HTTP server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer observability.Sync()
			ctx := cmd.Context()
			logger := observability.GetLogger()

			verifier, err := buildVerifier(cfg, logger)
			if err != nil {
				return fmt.Errorf("building verifier: %w", err)
			}

			// The database is optional; without one verifications still run,
			// they just leave no audit trail.
			var recorder server.OutcomeRecorder
			if cfg.Database.URL != "" {
				pool, err := pgxpool.New(ctx, cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				defer pool.Close()

				st, err := store.New(ctx, pool, logger)
				if err != nil {
					return fmt.Errorf("initializing store: %w", err)
				}
				recorder = st
			} else {
				logger.Warn("No database configured; verification outcomes will not be recorded.")
			}

			handlers := server.NewHandlers(logger, verifier, recorder)
			srv := server.New(cfg.Server, logger, handlers)

			logger.Info("Verification server ready.", zap.String("addr", cfg.Server.Addr))
			return srv.Run(ctx)
		},
	}
}
