package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/iho/casinowallet/internal/adapter/http/dto"
	postgresRepo "github.com/iho/casinowallet/internal/adapter/repository/postgres"
	"github.com/iho/casinowallet/internal/domain"
	"github.com/iho/casinowallet/internal/usecase"
)

// errUnbalanced makes the command exit non-zero when discrepancies exist.
var errUnbalanced = errors.New("reconciliation found discrepancies")

func reconcileCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored balances with both ledgers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report *domain.ReconciliationReport
			err := a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				uc := usecase.NewReconciliationUseCase(postgresRepo.NewReconciliationRepository(pool), a.log)
				var err error
				report, err = uc.RunSystem(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if asJSON {
				if err := printJSON(cmd.OutOrStdout(), dto.ReconciliationFromDomain(report)); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}

			if !report.IsBalanced() {
				return errUnbalanced
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, r *domain.ReconciliationReport) {
	fmt.Fprintf(w, "Checked %d legacy wallets and %d principals at %s\n",
		r.LegacyChecked, r.UnifiedChecked, r.CheckedAt.Format("2006-01-02 15:04:05"))

	if r.IsBalanced() {
		fmt.Fprintln(w, "Reconciliation PASSED")
		return
	}

	fmt.Fprintln(w, "Reconciliation FAILED")
	for _, d := range r.Legacy {
		fmt.Fprintf(w, "  legacy  %-24s brand=%s recorded=%d calculated=%d\n",
			truncate(d.PlayerID, 24), d.BrandID, d.Recorded, d.Calculated)
	}
	for _, d := range r.Unified {
		fmt.Fprintf(w, "  unified %-24s brand=%s recorded=%s calculated=%s\n",
			truncate(d.Principal.Key(), 24), d.BrandID, d.Recorded, d.Calculated)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
