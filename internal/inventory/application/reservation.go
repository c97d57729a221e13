package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

// ReservationService places soft holds on materials. It never touches the
// ledger; all-or-nothing behavior for a batch comes from the caller's
// surrounding transaction.
type ReservationService struct {
	log  *slog.Logger
	repo MaterialRepository
}

func NewReservationService(log *slog.Logger, repo MaterialRepository) *ReservationService {
	return &ReservationService{log: log, repo: repo}
}

func (s *ReservationService) ReserveMaterials(ctx context.Context, db postgres.DBTX, reqs []domain.ReservationRequest) error {
	now := time.Now().UTC()
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return apperr.Validationf("reservation for material %d: quantity must be positive, got %v", req.MaterialID, req.Quantity)
		}
		if _, err := s.repo.Get(ctx, db, req.MaterialID); err != nil {
			return err
		}
		ttl := req.TTLHours
		if ttl <= 0 {
			ttl = 24
		}
		if err := s.repo.InsertReservation(ctx, db, domain.Reservation{
			MaterialID: req.MaterialID,
			Quantity:   req.Quantity,
			OrderID:    req.OrderID,
			Reason:     req.Reason,
			ExpiresAt:  now.Add(time.Duration(ttl) * time.Hour),
		}); err != nil {
			return err
		}
	}
	s.log.Info("materials reserved", "count", len(reqs))
	return nil
}

// ReleaseForOrder drops every hold an order placed, typically right before
// the order itself is deleted.
func (s *ReservationService) ReleaseForOrder(ctx context.Context, db postgres.DBTX, orderID int64) error {
	return s.repo.DeleteReservationsForOrder(ctx, db, orderID)
}
