package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

// Ledger is the only sanctioned mutation path for on-hand quantities. It
// deliberately does not gate the resulting quantity: returns and manual
// corrections may move the value either direction, and deduction callers own
// the sufficiency check. What it does guarantee is exactly one audit move per
// applied delta.
type Ledger struct {
	log  *slog.Logger
	repo MaterialRepository
}

func NewLedger(log *slog.Logger, repo MaterialRepository) *Ledger {
	return &Ledger{log: log, repo: repo}
}

func (l *Ledger) ApplyDelta(ctx context.Context, db postgres.DBTX, materialID int64, delta float64, reason string, orderID, userID *int64) error {
	found, err := l.repo.AdjustQuantity(ctx, db, materialID, delta)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("material", materialID)
	}
	if err := l.repo.InsertMove(ctx, db, domain.Move{
		MaterialID: materialID,
		Delta:      delta,
		Reason:     reason,
		OrderID:    orderID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}
	l.log.Info("material delta applied", "material_id", materialID, "delta", delta, "reason", reason)
	return nil
}

func (l *Ledger) ListLowStock(ctx context.Context, db postgres.DBTX) ([]domain.Material, error) {
	return l.repo.ListLowStock(ctx, db)
}
