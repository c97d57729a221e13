package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/pkg/postgres"
)

const ReasonAutoDeduction = "auto deduction"

// AutoDeductionService resolves an order's items to material requirements and
// deducts on-hand stock immediately through the ledger. Individual failures
// are collected, never raised: the caller acts on the full result at its
// transaction boundary and must not keep a partially deducted state.
type AutoDeductionService struct {
	log          *slog.Logger
	ledger       *Ledger
	repo         MaterialRepository
	compositions CompositionResolver
}

func NewAutoDeductionService(log *slog.Logger, ledger *Ledger, repo MaterialRepository, compositions CompositionResolver) *AutoDeductionService {
	return &AutoDeductionService{log: log, ledger: ledger, repo: repo, compositions: compositions}
}

func (s *AutoDeductionService) DeductForOrder(ctx context.Context, db postgres.DBTX, orderID int64, items []domain.DeductionItem, userID *int64) domain.DeductionResult {
	var errs []string
	for _, it := range items {
		comps, err := s.compositions.Resolve(ctx, db, it.Type, it.Description)
		if err != nil {
			errs = append(errs, fmt.Sprintf("item %q (%s): composition lookup failed: %v", it.Type, it.Description, err))
			continue
		}
		for _, c := range comps {
			required := c.QtyPerUnit * float64(it.Quantity)
			m, err := s.repo.GetForUpdate(ctx, db, c.MaterialID)
			if err != nil {
				errs = append(errs, fmt.Sprintf("item %q: material %d: %v", it.Type, c.MaterialID, err))
				continue
			}
			if m.Quantity < required {
				errs = append(errs, fmt.Sprintf("item %q: material %q: need %v, have %v", it.Type, m.Name, required, m.Quantity))
				continue
			}
			if err := s.ledger.ApplyDelta(ctx, db, c.MaterialID, -required, ReasonAutoDeduction, &orderID, userID); err != nil {
				errs = append(errs, fmt.Sprintf("item %q: material %q: %v", it.Type, m.Name, err))
			}
		}
	}
	if len(errs) > 0 {
		s.log.Warn("auto deduction incomplete", "order_id", orderID, "failures", len(errs))
		return domain.DeductionResult{Success: false, Errors: errs}
	}
	return domain.DeductionResult{Success: true}
}
