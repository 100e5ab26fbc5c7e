package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/infrastructure/auth"
)

func tokenCmd(a *app) *cobra.Command {
	var (
		actorID string
		role    string
		brandID string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an actor token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			if ttl <= 0 {
				ttl = a.cfg.JWTExpiration
			}

			manager := auth.NewJWTManager(a.cfg.JWTSecret, ttl)
			token, err := manager.Generate(domain.Actor{
				ID:      actorID,
				Role:    domain.Role(role),
				BrandID: brandID,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&actorID, "id", "", "Actor id")
	cmd.Flags().StringVar(&role, "role", "", "Actor role, e.g. SUPER_ADMIN or GAME_PROVIDER")
	cmd.Flags().StringVar(&brandID, "brand", "", "Brand the actor belongs to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
