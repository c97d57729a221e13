package application

import (
	"context"

	"github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/pkg/postgres"
)

// MaterialRepository is the persistence surface of the inventory side. Every
// method takes the caller's handle so multi-step operations share one
// transaction.
type MaterialRepository interface {
	Get(ctx context.Context, db postgres.DBTX, id int64) (domain.Material, error)
	GetForUpdate(ctx context.Context, db postgres.DBTX, id int64) (domain.Material, error)
	AdjustQuantity(ctx context.Context, db postgres.DBTX, id int64, delta float64) (bool, error)
	InsertMove(ctx context.Context, db postgres.DBTX, m domain.Move) error
	InsertReservation(ctx context.Context, db postgres.DBTX, r domain.Reservation) error
	DeleteReservationsForOrder(ctx context.Context, db postgres.DBTX, orderID int64) error
	ListLowStock(ctx context.Context, db postgres.DBTX) ([]domain.Material, error)
}

// CompositionResolver resolves (item type, description) into per-unit
// material requirements. Read-only reference data; an empty result means the
// product needs no tracked materials.
type CompositionResolver interface {
	Resolve(ctx context.Context, db postgres.DBTX, itemType, description string) ([]domain.Composition, error)
}
