//go:build integration

package integration

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invapp "github.com/printhouse/printflow/internal/inventory/application"
	invpg "github.com/printhouse/printflow/internal/inventory/infrastructure/postgres"
	orderapp "github.com/printhouse/printflow/internal/order/application"
	orderpg "github.com/printhouse/printflow/internal/order/infrastructure/postgres"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

func TestOrderLifecycleAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	pool, err := postgres.Connect(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, env.Migrate(ctx, pool, "../../migrations/0001_init.sql"))

	_, err = pool.Exec(ctx, `INSERT INTO materials (name, quantity, min_quantity) VALUES ('Paper-150', 100, 10)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO product_compositions (item_type, description, material_id, qty_per_unit) VALUES ('flyer', 'A5 150g', 1, 0.5)`)
	require.NoError(t, err)

	log := slog.Default()
	db := postgres.NewDB(pool)
	matRepo := invpg.NewRepository(log)
	comps := invpg.NewCompositionStore()
	ledger := invapp.NewLedger(log, matRepo)
	reserver := invapp.NewReservationService(log, matRepo)
	deducter := invapp.NewAutoDeductionService(log, ledger, matRepo, comps)
	svc := orderapp.NewService(log, db,
		orderpg.NewOrderRepository(log),
		orderpg.NewLineItemRepository(log),
		orderpg.NewChatOrderRepository(log),
		reserver, deducter, ledger, comps)

	o, err := svc.CreateOrderWithAutoDeduction(ctx, orderapp.CustomerInput{Name: "Alice"},
		[]orderapp.ItemInput{{Type: "flyer", Description: "A5 150g", Quantity: 100, PriceCents: 50}})
	require.NoError(t, err)
	assert.Equal(t, "ORD-0001", o.Number)

	var qty float64
	require.NoError(t, pool.QueryRow(ctx, `SELECT quantity FROM materials WHERE id = 1`).Scan(&qty))
	assert.Equal(t, 50.0, qty) // 0.5 per unit x 100

	// an order whose deduction cannot be satisfied leaves nothing behind
	_, err = svc.CreateOrderWithAutoDeduction(ctx, orderapp.CustomerInput{},
		[]orderapp.ItemInput{{Type: "flyer", Description: "A5 150g", Quantity: 500}})
	var de *apperr.DeductionError
	require.ErrorAs(t, err, &de)
	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT quantity FROM materials WHERE id = 1`).Scan(&qty))
	assert.Equal(t, 50.0, qty)

	// delete returns the deducted material, rounded up per item
	require.NoError(t, svc.DeleteOrder(ctx, o.ID, nil))
	require.NoError(t, pool.QueryRow(ctx, `SELECT quantity FROM materials WHERE id = 1`).Scan(&qty))
	assert.Equal(t, 100.0, qty)
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM material_moves`).Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM line_items`).Scan(&count))
	assert.Equal(t, 0, count)
}
