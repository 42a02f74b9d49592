package cli

import (
	"fmt"
	"time"

	"trivia-service/internal/auth"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"

	"github.com/spf13/cobra"
)

// NewTokenCmd signs a bearer token for local testing against auth.jwtSecret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		id   string
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed identity token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			token, err := auth.NewJWTResolver(cfg.Auth.JWTSecret).Issue(domain.Identity{ID: id, Name: name}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
