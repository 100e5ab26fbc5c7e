package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/casinowallet/internal/domain"
)

// ReconciliationUseCase checks that stored balances match their ledgers.
type ReconciliationUseCase struct {
	repo   ReconciliationRepository
	logger zerolog.Logger
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(repo ReconciliationRepository, logger zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Run compares every legacy balance with the sum of its ledger deltas and
// every unified balance with its net transactions.
func (uc *ReconciliationUseCase) Run(ctx context.Context, actor domain.Actor) (*domain.ReconciliationReport, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.Role.CanActGlobally() {
		return nil, fmt.Errorf("%w: reconciliation requires SUPER_ADMIN", domain.ErrForbidden)
	}

	return uc.run(ctx)
}

// RunSystem runs reconciliation for operators without an actor, such as the CLI.
func (uc *ReconciliationUseCase) RunSystem(ctx context.Context) (*domain.ReconciliationReport, error) {
	return uc.run(ctx)
}

func (uc *ReconciliationUseCase) run(ctx context.Context) (*domain.ReconciliationReport, error) {
	report := &domain.ReconciliationReport{CheckedAt: time.Now().UTC()}

	checked, legacy, err := uc.repo.LegacyDiscrepancies(ctx)
	if err != nil {
		return nil, fmt.Errorf("legacy reconciliation: %w", err)
	}
	report.LegacyChecked, report.Legacy = checked, legacy

	checked, unified, err := uc.repo.UnifiedDiscrepancies(ctx)
	if err != nil {
		return nil, fmt.Errorf("unified reconciliation: %w", err)
	}
	report.UnifiedChecked, report.Unified = checked, unified

	for _, d := range report.Legacy {
		uc.logger.Error().
			Str("player_id", d.PlayerID).
			Int64("recorded", d.Recorded).
			Int64("calculated", d.Calculated).
			Msg("legacy balance does not match ledger")
	}
	for _, d := range report.Unified {
		uc.logger.Error().
			Str("principal", d.Principal.Key()).
			Str("recorded", d.Recorded.String()).
			Str("calculated", d.Calculated.String()).
			Msg("unified balance does not match transactions")
	}

	return report, nil
}
