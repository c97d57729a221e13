package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	invdomain "github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

const ReasonOrderDelete = "order delete"

type CustomerInput struct {
	Name             string
	Phone            string
	Email            string
	PaymentChannel   string
	PrepaymentCents  *int64
	PrepaymentStatus *string
	UserID           *int64
}

// MaterialRequirement is an optional per-item request for a soft hold on a
// material, quantity given per produced unit.
type MaterialRequirement struct {
	MaterialID int64
	PerUnitQty float64
	TTLHours   int
}

type ItemInput struct {
	Type        string
	Description string
	Params      json.RawMessage
	PriceCents  int64
	Quantity    int
	Sides       int
	Sheets      int
	Waste       int
	Materials   []MaterialRequirement
}

// Service orchestrates order creation, deletion and status transitions, and
// owns every transaction boundary that makes order + inventory steps atomic.
type Service struct {
	log          *slog.Logger
	db           postgres.Store
	orders       OrderRepository
	items        LineItemRepository
	chat         ChatOrderRepository
	reserver     Reserver
	deducter     Deducter
	ledger       Ledger
	compositions CompositionResolver
}

func NewService(
	log *slog.Logger,
	db postgres.Store,
	orders OrderRepository,
	items LineItemRepository,
	chat ChatOrderRepository,
	reserver Reserver,
	deducter Deducter,
	ledger Ledger,
	compositions CompositionResolver,
) *Service {
	return &Service{
		log:          log,
		db:           db,
		orders:       orders,
		items:        items,
		chat:         chat,
		reserver:     reserver,
		deducter:     deducter,
		ledger:       ledger,
		compositions: compositions,
	}
}

// CreateOrder persists a bare order with initial status. Absent optional
// customer fields default to null, never to an error; the display number is
// generated after insertion so it can embed the assigned id.
func (s *Service) CreateOrder(ctx context.Context, cust CustomerInput) (domain.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.insertOrder(ctx, tx, cust)
	if err != nil {
		return domain.Order{}, apperr.Consistency("create order", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order created", "order_id", o.ID, "number", o.Number)
	return o, nil
}

func (s *Service) insertOrder(ctx context.Context, tx postgres.Tx, cust CustomerInput) (domain.Order, error) {
	now := time.Now().UTC()
	o := domain.Order{
		Status:           domain.StatusAccepted,
		CustomerName:     cust.Name,
		CustomerPhone:    cust.Phone,
		CustomerEmail:    cust.Email,
		PaymentChannel:   cust.PaymentChannel,
		PrepaymentCents:  cust.PrepaymentCents,
		PrepaymentStatus: cust.PrepaymentStatus,
		UserID:           cust.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.Insert(ctx, tx, &o); err != nil {
		return domain.Order{}, err
	}
	o.Number = domain.FormatNumber(o.ID)
	if err := s.orders.SetNumber(ctx, tx, o.ID, o.Number); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Service) insertItems(ctx context.Context, tx postgres.Tx, orderID int64, inputs []ItemInput) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	for _, in := range inputs {
		params := in.Params
		if len(params) == 0 && in.Description != "" {
			b, err := json.Marshal(map[string]string{"description": in.Description})
			if err != nil {
				return nil, err
			}
			params = b
		}
		items = append(items, domain.LineItem{
			OrderID:    orderID,
			Type:       in.Type,
			Params:     params,
			PriceCents: in.PriceCents,
			Quantity:   in.Quantity,
			Sides:      in.Sides,
			Sheets:     in.Sheets,
			Waste:      in.Waste,
		})
	}
	if err := s.items.InsertBatch(ctx, tx, orderID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOrderWithReservation inserts the order and its items and places a
// soft hold for every item that carries material requirements. Either all of
// it commits or none of it does.
func (s *Service) CreateOrderWithReservation(ctx context.Context, cust CustomerInput, inputs []ItemInput) (domain.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.insertOrder(ctx, tx, cust)
	if err != nil {
		return domain.Order{}, apperr.Consistency("create order with reservation", err)
	}
	items, err := s.insertItems(ctx, tx, o.ID, inputs)
	if err != nil {
		return domain.Order{}, apperr.Consistency("create order with reservation", err)
	}
	o.Items = items

	var reqs []invdomain.ReservationRequest
	for _, in := range inputs {
		for _, m := range in.Materials {
			reqs = append(reqs, invdomain.ReservationRequest{
				MaterialID: m.MaterialID,
				Quantity:   m.PerUnitQty * float64(in.Quantity),
				OrderID:    o.ID,
				Reason:     fmt.Sprintf("reservation for order %s", o.Number),
				TTLHours:   m.TTLHours,
			})
		}
	}
	if len(reqs) > 0 {
		if err := s.reserver.ReserveMaterials(ctx, tx, reqs); err != nil {
			return domain.Order{}, apperr.Consistency("create order with reservation", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order created with reservation", "order_id", o.ID, "reservations", len(reqs))
	return o, nil
}

// CreateOrderWithAutoDeduction inserts the order and items and deducts stock
// immediately. A deduction result reporting any failure rolls the whole
// transaction back and the surfaced error carries every collected reason.
func (s *Service) CreateOrderWithAutoDeduction(ctx context.Context, cust CustomerInput, inputs []ItemInput) (domain.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := s.insertOrder(ctx, tx, cust)
	if err != nil {
		return domain.Order{}, apperr.Consistency("create order with auto deduction", err)
	}
	items, err := s.insertItems(ctx, tx, o.ID, inputs)
	if err != nil {
		return domain.Order{}, apperr.Consistency("create order with auto deduction", err)
	}
	o.Items = items

	deductItems := make([]invdomain.DeductionItem, 0, len(inputs))
	for _, in := range inputs {
		deductItems = append(deductItems, invdomain.DeductionItem{
			Type:        in.Type,
			Description: in.Description,
			Quantity:    in.Quantity,
		})
	}
	res := s.deducter.DeductForOrder(ctx, tx, o.ID, deductItems, cust.UserID)
	if !res.Success {
		return domain.Order{}, &apperr.DeductionError{Reasons: res.Errors}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order created with auto deduction", "order_id", o.ID)
	return o, nil
}

// UpdateOrderStatus finds which population the id belongs to, chat first,
// and transitions only the matching one. No transition is rejected here;
// policy belongs to callers. The update timestamp always moves.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status domain.Status) error {
	if !status.Valid() {
		return apperr.Validationf("unknown status code %d", status)
	}
	now := time.Now().UTC()
	if err := s.updateStatusOn(ctx, s.db, id, status, now); err != nil {
		return err
	}
	s.log.Info("order status updated", "order_id", id, "status", int(status))
	return nil
}

func (s *Service) updateStatusOn(ctx context.Context, db postgres.DBTX, id int64, status domain.Status, now time.Time) error {
	if native, ok := domain.ChatStatusFor(status); ok {
		updated, err := s.chat.UpdateStatus(ctx, db, id, native, now)
		if err != nil {
			return err
		}
		if updated {
			return nil
		}
	}
	updated, err := s.orders.UpdateStatus(ctx, db, id, status, now)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("order", id)
	}
	return nil
}

// DeleteOrder returns every deducted material to stock before removing the
// order. Per item, each material requirement is multiplied by the item
// quantity and rounded up to the next whole unit; returns are summed per
// material and written as one move each.
func (s *Service) DeleteOrder(ctx context.Context, id int64, actingUserID *int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.deleteWithin(ctx, tx, id, actingUserID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("order deleted", "order_id", id)
	return nil
}

func (s *Service) deleteWithin(ctx context.Context, tx postgres.Tx, id int64, actingUserID *int64) error {
	if _, err := s.orders.Get(ctx, tx, id); err != nil {
		return err
	}
	items, err := s.items.ListByOrder(ctx, tx, id)
	if err != nil {
		return apperr.Consistency("delete order", err)
	}

	returns := map[int64]float64{}
	for _, it := range items {
		desc := domain.ItemDescription(it.Params)
		comps, err := s.compositions.Resolve(ctx, tx, it.Type, desc)
		if err != nil {
			return apperr.Consistency("delete order", err)
		}
		for _, c := range comps {
			returns[c.MaterialID] += math.Ceil(c.QtyPerUnit * float64(it.Quantity))
		}
	}

	materialIDs := make([]int64, 0, len(returns))
	for mid := range returns {
		materialIDs = append(materialIDs, mid)
	}
	sort.Slice(materialIDs, func(i, j int) bool { return materialIDs[i] < materialIDs[j] })

	for _, mid := range materialIDs {
		if err := s.ledger.ApplyDelta(ctx, tx, mid, returns[mid], ReasonOrderDelete, &id, actingUserID); err != nil {
			return apperr.Consistency("delete order", err)
		}
	}
	if err := s.reserver.ReleaseForOrder(ctx, tx, id); err != nil {
		return apperr.Consistency("delete order", err)
	}
	deleted, err := s.orders.Delete(ctx, tx, id)
	if err != nil {
		return apperr.Consistency("delete order", err)
	}
	if !deleted {
		return apperr.NotFound("order", id)
	}
	return nil
}

// DuplicateOrder copies an order under a derived number with status reset and
// prepayment cleared; line items are copied verbatim, parameter bags included.
func (s *Service) DuplicateOrder(ctx context.Context, id int64) (domain.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orig, err := s.orders.Get(ctx, tx, id)
	if err != nil {
		return domain.Order{}, err
	}
	origItems, err := s.items.ListByOrder(ctx, tx, id)
	if err != nil {
		return domain.Order{}, apperr.Consistency("duplicate order", err)
	}

	now := time.Now().UTC()
	dup := domain.Order{
		Status:         domain.StatusAccepted,
		CustomerName:   orig.CustomerName,
		CustomerPhone:  orig.CustomerPhone,
		CustomerEmail:  orig.CustomerEmail,
		PaymentChannel: orig.PaymentChannel,
		UserID:         orig.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orders.Insert(ctx, tx, &dup); err != nil {
		return domain.Order{}, apperr.Consistency("duplicate order", err)
	}
	dup.Number = orig.Number + "-" + uuid.NewString()[:8]
	if err := s.orders.SetNumber(ctx, tx, dup.ID, dup.Number); err != nil {
		return domain.Order{}, apperr.Consistency("duplicate order", err)
	}

	copies := make([]domain.LineItem, 0, len(origItems))
	for _, it := range origItems {
		copies = append(copies, domain.LineItem{
			OrderID:    dup.ID,
			Type:       it.Type,
			Params:     it.Params,
			PriceCents: it.PriceCents,
			Quantity:   it.Quantity,
			Sides:      it.Sides,
			Sheets:     it.Sheets,
			Waste:      it.Waste,
		})
	}
	if err := s.items.InsertBatch(ctx, tx, dup.ID, copies); err != nil {
		return domain.Order{}, apperr.Consistency("duplicate order", err)
	}
	dup.Items = copies

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("order duplicated", "source_id", id, "order_id", dup.ID)
	return dup, nil
}

// GetOrder loads one direct order with its line items.
func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	o, err := s.orders.Get(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	items, err := s.items.ListByOrder(ctx, s.db, id)
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items
	return o, nil
}

// BulkUpdateOrderStatus transitions every listed order inside one
// transaction; one miss rolls all of them back.
func (s *Service) BulkUpdateOrderStatus(ctx context.Context, ids []int64, status domain.Status) error {
	if len(ids) == 0 {
		return apperr.Validationf("empty order id list")
	}
	if !status.Valid() {
		return apperr.Validationf("unknown status code %d", status)
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for _, id := range ids {
		if err := s.updateStatusOn(ctx, tx, id, status, now); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("bulk status update", "count", len(ids), "status", int(status))
	return nil
}

// BulkDeleteOrders applies full delete semantics, inventory return included,
// per order inside one outer transaction.
func (s *Service) BulkDeleteOrders(ctx context.Context, ids []int64, actingUserID *int64) error {
	if len(ids) == 0 {
		return apperr.Validationf("empty order id list")
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range ids {
		if err := s.deleteWithin(ctx, tx, id, actingUserID); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("bulk delete", "count", len(ids))
	return nil
}
