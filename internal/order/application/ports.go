package application

import (
	"context"
	"time"

	invdomain "github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/postgres"
)

type OrderRepository interface {
	Insert(ctx context.Context, db postgres.DBTX, o *domain.Order) error
	SetNumber(ctx context.Context, db postgres.DBTX, id int64, number string) error
	Get(ctx context.Context, db postgres.DBTX, id int64) (domain.Order, error)
	UpdateStatus(ctx context.Context, db postgres.DBTX, id int64, status domain.Status, now time.Time) (bool, error)
	Delete(ctx context.Context, db postgres.DBTX, id int64) (bool, error)
	ListVisible(ctx context.Context, db postgres.DBTX, ownerID int64) ([]domain.Order, error)
	Search(ctx context.Context, db postgres.DBTX, ownerID int64, f SearchFilters) ([]domain.Order, error)
}

type LineItemRepository interface {
	InsertBatch(ctx context.Context, db postgres.DBTX, orderID int64, items []domain.LineItem) error
	ListByOrder(ctx context.Context, db postgres.DBTX, orderID int64) ([]domain.LineItem, error)
}

type ChatOrderRepository interface {
	Get(ctx context.Context, db postgres.DBTX, id int64) (domain.ChatOrder, error)
	UpdateStatus(ctx context.Context, db postgres.DBTX, id int64, native string, now time.Time) (bool, error)
	ListVisible(ctx context.Context, db postgres.DBTX, ownerID int64) ([]domain.ChatOrder, error)
}

// PoolAssignment points at an order handed to a user through the pooling
// mechanism, regardless of the channel it originally came from.
type PoolAssignment struct {
	Source  domain.Source
	OrderID int64
}

type PoolRepository interface {
	ListAssignments(ctx context.Context, db postgres.DBTX, userID int64) ([]PoolAssignment, error)
}

// Inventory collaborators, shared-transaction shaped.

type Reserver interface {
	ReserveMaterials(ctx context.Context, db postgres.DBTX, reqs []invdomain.ReservationRequest) error
	ReleaseForOrder(ctx context.Context, db postgres.DBTX, orderID int64) error
}

type Deducter interface {
	DeductForOrder(ctx context.Context, db postgres.DBTX, orderID int64, items []invdomain.DeductionItem, userID *int64) invdomain.DeductionResult
}

type Ledger interface {
	ApplyDelta(ctx context.Context, db postgres.DBTX, materialID int64, delta float64, reason string, orderID, userID *int64) error
}

type CompositionResolver interface {
	Resolve(ctx context.Context, db postgres.DBTX, itemType, description string) ([]invdomain.Composition, error)
}
