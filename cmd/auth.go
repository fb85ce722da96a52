package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfressle/webshelf/internal/auth"
	"github.com/cfressle/webshelf/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var (
		debugMode         bool
		credentialsFile   string
		clientSecretsFile string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive Google authorization flow",
		Long: `Run the interactive browser-based Google consent flow and persist the
obtained credential, replacing any stored one.

Use this to authorize the server ahead of time, or to recover when the
stored refresh token has been revoked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := AuthConfig{
				CredentialsFile:   credentialsFile,
				ClientSecretsFile: clientSecretsFile,
			}
			if err := resolveAuthConfig(&config); err != nil {
				return err
			}
			return runAuth(config, debugMode)
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "Path of the persisted credential record. Can also use WEBSHELF_CREDENTIALS_FILE env var.")
	cmd.Flags().StringVar(&clientSecretsFile, "client-secrets-file", "", "Path of the Google OAuth client secrets JSON. Can also use GOOGLE_CLIENT_SECRETS env var.")

	return cmd
}

func runAuth(config AuthConfig, debugMode bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(os.Stderr, debugMode)

	secrets, err := os.ReadFile(config.ClientSecretsFile)
	if err != nil {
		return fmt.Errorf("failed to read client secrets file: %w", err)
	}
	oauthConfig, err := auth.ConfigFromSecretsFile(secrets, auth.DefaultScopes)
	if err != nil {
		return fmt.Errorf("failed to parse client secrets: %w", err)
	}

	authorizer := auth.NewFlowAuthorizer(oauthConfig, auth.WithFlowLogger(logger))

	token, err := authorizer.Authorize(ctx)
	if err != nil {
		return fmt.Errorf("interactive authorization failed: %w", err)
	}

	store := auth.NewFileStore(config.CredentialsFile)
	if err := store.Save(token); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	fmt.Printf("Credential saved to %s (expires %s)\n",
		store.Path(), token.Expiry.Format(time.RFC3339))
	return nil
}
