package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/casinowallet/internal/adapter/repository/postgres"
	"github.com/iho/casinowallet/internal/domain"
)

func brandCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brand",
		Short: "Brand administration",
	}

	var brand domain.Brand
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a brand",
		RunE: func(cmd *cobra.Command, args []string) error {
			brand.IsActive = true
			brand.CreatedAt = time.Now().UTC()

			return a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := postgresRepo.NewBrandRepository(pool).Create(ctx, &brand); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "brand %s created\n", brand.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&brand.ID, "id", "", "Brand id")
	create.Flags().StringVar(&brand.Name, "name", "", "Display name")
	create.Flags().StringVar(&brand.Hostname, "hostname", "", "Hostname the brand is served on")
	_ = create.MarkFlagRequired("id")
	_ = create.MarkFlagRequired("hostname")

	cmd.AddCommand(create)
	return cmd
}

func overdraftCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdraft",
		Short: "Overdraft allowances",
	}

	var brandID, from, to string
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Let a principal go negative towards a counterparty",
		RunE: func(cmd *cobra.Command, args []string) error {
			allowance, err := parseAllowance(brandID, from, to)
			if err != nil {
				return err
			}

			return a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				if err := postgresRepo.NewOverdraftRepository(pool).Create(ctx, allowance); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "overdraft granted to %s\n", allowance.From)
				return nil
			})
		},
	}
	grant.Flags().StringVar(&brandID, "brand", "", "Brand id")
	grant.Flags().StringVar(&from, "from", "", "Principal allowed to go negative, as type:id")
	grant.Flags().StringVar(&to, "to", "", "Counterparty as type:id (empty means any)")
	_ = grant.MarkFlagRequired("brand")
	_ = grant.MarkFlagRequired("from")

	cmd.AddCommand(grant)
	return cmd
}

func parseAllowance(brandID, from, to string) (domain.OverdraftAllowance, error) {
	if brandID == "" {
		return domain.OverdraftAllowance{}, fmt.Errorf("%w: brand is required", domain.ErrValidation)
	}

	fromRef, err := domain.ParsePrincipalRef(from)
	if err != nil {
		return domain.OverdraftAllowance{}, err
	}

	allowance := domain.OverdraftAllowance{BrandID: brandID, From: fromRef}
	if to != "" {
		toRef, err := domain.ParsePrincipalRef(to)
		if err != nil {
			return domain.OverdraftAllowance{}, err
		}
		allowance.To = &toRef
	}

	return allowance, nil
}

func outboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Outbox maintenance",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete published events older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			before := time.Now().UTC().Add(-olderThan)

			return a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				n, err := postgresRepo.NewOutboxRepository(pool).DeletePublished(ctx, before)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d published events\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum age of events to delete")

	cmd.AddCommand(prune)
	return cmd
}
