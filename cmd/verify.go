package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/observability"
)

// newVerifyCommand runs a single verification from the terminal and prints
// the outcome as JSON.
func newVerifyCommand() *cobra.Command {
	var (
		platformFlag string
		username     string
		password     string
	)

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify one credential pair against a hiring platform.",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer observability.Sync()
			logger := observability.GetLogger()

			// Prefer the environment over the flag so the password stays out
			// of shell history and process listings.
			if password == "" {
				password = os.Getenv("CREDVERIFY_PASSWORD")
			}

			verifier, err := buildVerifier(cfg, logger)
			if err != nil {
				return fmt.Errorf("building verifier: %w", err)
			}

			outcome := verifier.Verify(cmd.Context(), schemas.VerificationRequest{
				Platform: schemas.Platform(platformFlag),
				Username: username,
				Password: password,
			})

			json := jsoniter.ConfigCompatibleWithStandardLibrary
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(outcome.ToResponse())
		},
	}

	verifyCmd.Flags().StringVar(&platformFlag, "platform", "", "platform to verify against (airwork or engage)")
	verifyCmd.Flags().StringVarP(&username, "username", "u", "", "account username or login ID")
	verifyCmd.Flags().StringVarP(&password, "password", "p", "", "account password (or set CREDVERIFY_PASSWORD)")
	_ = verifyCmd.MarkFlagRequired("platform")
	_ = verifyCmd.MarkFlagRequired("username")

	return verifyCmd
}
