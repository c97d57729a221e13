package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invdomain "github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
)

func TestCreateOrder(t *testing.T) {
	d := newDeps()
	svc := d.service()

	o, err := svc.CreateOrder(context.Background(), CustomerInput{Name: "Alice"})
	require.NoError(t, err)

	assert.Equal(t, "ORD-0001", o.Number)
	assert.Equal(t, domain.StatusAccepted, o.Status)
	assert.Nil(t, o.PrepaymentCents)
	assert.True(t, d.store.last.committed)
}

func TestCreateOrderWithReservation(t *testing.T) {
	d := newDeps()
	svc := d.service()

	items := []ItemInput{{
		Type:     "flyer",
		Quantity: 4,
		Materials: []MaterialRequirement{
			{MaterialID: 7, PerUnitQty: 2.5, TTLHours: 48},
		},
	}}
	o, err := svc.CreateOrderWithReservation(context.Background(), CustomerInput{}, items)
	require.NoError(t, err)

	require.Len(t, d.reserver.reqs, 1)
	req := d.reserver.reqs[0]
	assert.Equal(t, int64(7), req.MaterialID)
	assert.Equal(t, 10.0, req.Quantity) // 2.5 per unit x 4
	assert.Equal(t, o.ID, req.OrderID)
	assert.Equal(t, 48, req.TTLHours)
	assert.True(t, d.store.last.committed)
}

func TestCreateOrderWithReservationRollsBack(t *testing.T) {
	d := newDeps()
	d.reserver.err = errors.New("material 7 not found")
	svc := d.service()

	items := []ItemInput{{
		Type:      "flyer",
		Quantity:  1,
		Materials: []MaterialRequirement{{MaterialID: 7, PerUnitQty: 1}},
	}}
	_, err := svc.CreateOrderWithReservation(context.Background(), CustomerInput{}, items)

	var ce *apperr.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.True(t, d.store.last.rolledBack)
	assert.False(t, d.store.last.committed)
}

func TestCreateOrderWithAutoDeduction(t *testing.T) {
	d := newDeps()
	svc := d.service()

	items := []ItemInput{
		{Type: "flyer", Description: "A5 150g", Quantity: 100, PriceCents: 50},
		{Type: "poster", Description: "A2 200g", Quantity: 10, PriceCents: 400},
	}
	_, err := svc.CreateOrderWithAutoDeduction(context.Background(), CustomerInput{}, items)
	require.NoError(t, err)

	require.Len(t, d.deducter.items, 2)
	assert.Equal(t, invdomain.DeductionItem{Type: "flyer", Description: "A5 150g", Quantity: 100}, d.deducter.items[0])
	assert.True(t, d.store.last.committed)
}

func TestCreateOrderWithAutoDeductionSurfacesAllReasons(t *testing.T) {
	d := newDeps()
	d.deducter.result = invdomain.DeductionResult{
		Success: false,
		Errors:  []string{"paper short", "ink missing"},
	}
	svc := d.service()

	_, err := svc.CreateOrderWithAutoDeduction(context.Background(), CustomerInput{},
		[]ItemInput{{Type: "flyer", Quantity: 1}})

	var de *apperr.DeductionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"paper short", "ink missing"}, de.Reasons)
	assert.True(t, d.store.last.rolledBack)
}

func TestUpdateOrderStatusProbesChatFirst(t *testing.T) {
	d := newDeps()
	d.chat.orders[5] = domain.ChatOrder{ID: 5, Status: "new"}
	d.orders.orders[5] = domain.Order{ID: 5, Status: domain.StatusAccepted}
	svc := d.service()

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), 5, domain.StatusReady))

	assert.Equal(t, "ready", d.chat.orders[5].Status)
	// the direct order with the same id is untouched
	assert.Equal(t, domain.StatusAccepted, d.orders.orders[5].Status)
}

func TestUpdateOrderStatusFallsBackToDirect(t *testing.T) {
	d := newDeps()
	d.orders.orders[3] = domain.Order{ID: 3, Status: domain.StatusAccepted}
	svc := d.service()

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), 3, domain.StatusInProgress))
	assert.Equal(t, domain.StatusInProgress, d.orders.orders[3].Status)
	assert.False(t, d.orders.orders[3].UpdatedAt.IsZero())
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	d := newDeps()
	svc := d.service()

	err := svc.UpdateOrderStatus(context.Background(), 42, domain.StatusReady)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUpdateOrderStatusRejectsUnknownCode(t *testing.T) {
	d := newDeps()
	svc := d.service()

	err := svc.UpdateOrderStatus(context.Background(), 1, domain.Status(7))
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func mustParams(t *testing.T, desc string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]string{"description": desc})
	require.NoError(t, err)
	return b
}

func TestDeleteOrderReturnsMaterials(t *testing.T) {
	d := newDeps()
	d.orders.orders[1] = domain.Order{ID: 1, Number: "ORD-0001"}
	d.items.byOrder[1] = []domain.LineItem{
		{OrderID: 1, Type: "flyer", Params: mustParams(t, "A5 150g"), Quantity: 3},
		{OrderID: 1, Type: "poster", Params: mustParams(t, "A2 200g"), Quantity: 2},
	}
	d.resolver.byKey["flyer|A5 150g"] = []invdomain.Composition{{MaterialID: 10, QtyPerUnit: 2.5}}
	d.resolver.byKey["poster|A2 200g"] = []invdomain.Composition{
		{MaterialID: 10, QtyPerUnit: 1.2},
		{MaterialID: 20, QtyPerUnit: 0.5},
	}
	svc := d.service()

	require.NoError(t, svc.DeleteOrder(context.Background(), 1, nil))

	// flyer: ceil(2.5*3)=8, poster: ceil(1.2*2)=3 -> material 10 gets 11
	// poster: ceil(0.5*2)=1 -> material 20 gets 1
	require.Len(t, d.ledger.deltas, 2)
	assert.Equal(t, delta{materialID: 10, qty: 11, reason: ReasonOrderDelete, orderID: d.ledger.deltas[0].orderID}, d.ledger.deltas[0])
	assert.Equal(t, 1.0, d.ledger.deltas[1].qty)
	assert.Equal(t, int64(20), d.ledger.deltas[1].materialID)
	for _, dl := range d.ledger.deltas {
		require.NotNil(t, dl.orderID)
		assert.Equal(t, int64(1), *dl.orderID)
	}
	assert.Equal(t, []int64{1}, d.reserver.released)
	assert.NotContains(t, d.orders.orders, int64(1))
	assert.True(t, d.store.last.committed)
}

func TestDeleteOrderRollsBackOnLedgerFailure(t *testing.T) {
	d := newDeps()
	d.orders.orders[1] = domain.Order{ID: 1}
	d.items.byOrder[1] = []domain.LineItem{
		{OrderID: 1, Type: "flyer", Params: mustParams(t, "A5"), Quantity: 1},
	}
	d.resolver.byKey["flyer|A5"] = []invdomain.Composition{{MaterialID: 10, QtyPerUnit: 1}}
	d.ledger.err = errors.New("ledger down")
	svc := d.service()

	err := svc.DeleteOrder(context.Background(), 1, nil)
	var ce *apperr.ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.True(t, d.store.last.rolledBack)
	assert.Contains(t, d.orders.orders, int64(1))
}

func TestDeleteOrderNotFound(t *testing.T) {
	d := newDeps()
	svc := d.service()

	err := svc.DeleteOrder(context.Background(), 9, nil)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDuplicateOrder(t *testing.T) {
	d := newDeps()
	prepay := int64(1500)
	status := "paid"
	d.orders.orders[1] = domain.Order{
		ID:               1,
		Number:           "ORD-0001",
		Status:           domain.StatusCompleted,
		CustomerName:     "Bob",
		PrepaymentCents:  &prepay,
		PrepaymentStatus: &status,
	}
	d.items.byOrder[1] = []domain.LineItem{
		{OrderID: 1, Type: "flyer", Params: mustParams(t, "A5"), PriceCents: 100, Quantity: 3, Sides: 2},
	}
	svc := d.service()

	dup, err := svc.DuplicateOrder(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, int64(1), dup.ID)
	assert.True(t, strings.HasPrefix(dup.Number, "ORD-0001-"), dup.Number)
	assert.Equal(t, domain.StatusAccepted, dup.Status)
	assert.Nil(t, dup.PrepaymentCents)
	assert.Nil(t, dup.PrepaymentStatus)
	assert.Equal(t, "Bob", dup.CustomerName)

	require.Len(t, dup.Items, 1)
	orig := d.items.byOrder[1][0]
	copyItem := dup.Items[0]
	assert.Equal(t, orig.Type, copyItem.Type)
	assert.Equal(t, orig.Params, copyItem.Params)
	assert.Equal(t, orig.PriceCents, copyItem.PriceCents)
	assert.Equal(t, orig.Quantity, copyItem.Quantity)
	assert.Equal(t, dup.ID, copyItem.OrderID)
}

func TestBulkUpdateOrderStatusEmptyList(t *testing.T) {
	d := newDeps()
	svc := d.service()

	err := svc.BulkUpdateOrderStatus(context.Background(), nil, domain.StatusReady)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBulkUpdateOrderStatus(t *testing.T) {
	d := newDeps()
	d.orders.orders[1] = domain.Order{ID: 1}
	d.orders.orders[2] = domain.Order{ID: 2}
	svc := d.service()

	require.NoError(t, svc.BulkUpdateOrderStatus(context.Background(), []int64{1, 2}, domain.StatusCancelled))
	assert.Equal(t, domain.StatusCancelled, d.orders.orders[1].Status)
	assert.Equal(t, domain.StatusCancelled, d.orders.orders[2].Status)
	assert.True(t, d.store.last.committed)
}

func TestBulkDeleteRollsBackWhenOneFails(t *testing.T) {
	d := newDeps()
	d.orders.orders[1] = domain.Order{ID: 1}
	svc := d.service()

	err := svc.BulkDeleteOrders(context.Background(), []int64{1, 999}, nil)
	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, d.store.last.rolledBack)
}
