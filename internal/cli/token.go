package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"iqplay/internal/config"
	"iqplay/internal/domain"
	"iqplay/internal/identity"
)

// NewTokenCmd mints an access token for local testing against the API.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for a user email",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			verifier := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			token, err := verifier.Issue(domain.User{ID: uuid.NewString(), Email: email}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the signed-in user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
