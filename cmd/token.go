package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"course-media/config"
	"course-media/pkg/auth"
)

// token mints a bearer token against the configured secret. Session
// issuance belongs to the account service; this exists for local
// testing and operational recovery only.
func token(cfg *config.Config) *cobra.Command {
	var role string
	var subject string
	var ttl time.Duration

	c := &cobra.Command{
		Use:   "token",
		Short: "mint a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := uuid.New()
			if subject != "" {
				parsed, err := uuid.Parse(subject)
				if err != nil {
					return fmt.Errorf("invalid subject id: %w", err)
				}
				userID = parsed
			}

			manager := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, ttl)
			signed, err := manager.Issue(userID, auth.Role(role))
			if err != nil {
				return err
			}

			fmt.Println(signed)
			return nil
		},
	}

	c.Flags().StringVar(&role, "role", string(auth.RoleUser), "token role (admin|user)")
	c.Flags().StringVar(&subject, "subject", "", "user id (random when omitted)")
	c.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return c
}
