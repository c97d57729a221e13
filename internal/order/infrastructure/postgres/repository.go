package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/printhouse/printflow/internal/order/application"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

const orderColumns = `id, number, status, customer_name, customer_phone, customer_email,
	payment_channel, prepayment_cents, prepayment_status, user_id, created_at, updated_at`

type OrderRepository struct {
	log *slog.Logger
}

func NewOrderRepository(log *slog.Logger) *OrderRepository {
	return &OrderRepository{log: log}
}

func (r *OrderRepository) Insert(ctx context.Context, db postgres.DBTX, o *domain.Order) error {
	return db.QueryRow(ctx, `INSERT INTO orders
		(number, status, customer_name, customer_phone, customer_email,
		 payment_channel, prepayment_cents, prepayment_status, user_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id`,
		o.Number, int(o.Status), o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		o.PaymentChannel, o.PrepaymentCents, o.PrepaymentStatus, o.UserID, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
}

func (r *OrderRepository) SetNumber(ctx context.Context, db postgres.DBTX, id int64, number string) error {
	_, err := db.Exec(ctx, `UPDATE orders SET number=$2 WHERE id=$1`, id, number)
	return err
}

func (r *OrderRepository) Get(ctx context.Context, db postgres.DBTX, id int64) (domain.Order, error) {
	row := db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return o, err
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, db postgres.DBTX, id int64, status domain.Status, now time.Time) (bool, error) {
	ct, err := db.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, int(status), now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *OrderRepository) Delete(ctx context.Context, db postgres.DBTX, id int64) (bool, error) {
	// line_items go with the order via ON DELETE CASCADE
	ct, err := db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *OrderRepository) ListVisible(ctx context.Context, db postgres.DBTX, ownerID int64) ([]domain.Order, error) {
	rows, err := db.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id=$1 OR user_id IS NULL
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, db, orders)
}

// Search applies every filter expressible in SQL; derived-total filtering
// and paging happen in the service on top of this.
func (r *OrderRepository) Search(ctx context.Context, db postgres.DBTX, ownerID int64, f application.SearchFilters) ([]domain.Order, error) {
	var (
		where = []string{"(o.user_id=$1 OR o.user_id IS NULL)"}
		args  = []any{ownerID}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf(`(o.number ILIKE %[1]s OR o.customer_name ILIKE %[1]s
			OR o.customer_phone ILIKE %[1]s OR o.customer_email ILIKE %[1]s
			OR EXISTS (SELECT 1 FROM line_items li WHERE li.order_id=o.id
				AND (li.item_type ILIKE %[1]s OR li.params::text ILIKE %[1]s)))`, p))
	}
	if f.Status != nil {
		where = append(where, "o.status="+arg(int(*f.Status)))
	}
	if f.From != nil {
		where = append(where, "o.created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "o.created_at <= "+arg(*f.To))
	}
	if f.CustomerName != "" {
		where = append(where, "o.customer_name ILIKE "+arg("%"+f.CustomerName+"%"))
	}
	if f.CustomerPhone != "" {
		where = append(where, "o.customer_phone ILIKE "+arg("%"+f.CustomerPhone+"%"))
	}
	if f.CustomerEmail != "" {
		where = append(where, "o.customer_email ILIKE "+arg("%"+f.CustomerEmail+"%"))
	}
	if f.PaymentChannel != "" {
		where = append(where, "o.payment_channel="+arg(f.PaymentChannel))
	}
	if f.HasPrepayment != nil {
		if *f.HasPrepayment {
			where = append(where, "o.prepayment_cents IS NOT NULL")
		} else {
			where = append(where, "o.prepayment_cents IS NULL")
		}
	}

	sql := `SELECT ` + prefixed("o", orderColumns) + ` FROM orders o WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY o.created_at DESC`
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(ctx, db, orders)
}

func (r *OrderRepository) attachItems(ctx context.Context, db postgres.DBTX, orders []domain.Order) ([]domain.Order, error) {
	items := NewLineItemRepository(r.log)
	for i := range orders {
		list, err := items.ListByOrder(ctx, db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = list
	}
	return orders, nil
}

func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		status int
	)
	err := row.Scan(&o.ID, &o.Number, &status, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail,
		&o.PaymentChannel, &o.PrepaymentCents, &o.PrepaymentStatus, &o.UserID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.Status(status)
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type LineItemRepository struct {
	log *slog.Logger
}

func NewLineItemRepository(log *slog.Logger) *LineItemRepository {
	return &LineItemRepository{log: log}
}

func (r *LineItemRepository) InsertBatch(ctx context.Context, db postgres.DBTX, orderID int64, items []domain.LineItem) error {
	for i := range items {
		err := db.QueryRow(ctx, `INSERT INTO line_items
			(order_id, item_type, params, price_cents, quantity, sides, sheets, waste)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id`,
			orderID, items[i].Type, items[i].Params, items[i].PriceCents,
			items[i].Quantity, items[i].Sides, items[i].Sheets, items[i].Waste,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
		items[i].OrderID = orderID
	}
	return nil
}

func (r *LineItemRepository) ListByOrder(ctx context.Context, db postgres.DBTX, orderID int64) ([]domain.LineItem, error) {
	rows, err := db.Query(ctx, `SELECT id, order_id, item_type, params, price_cents, quantity, sides, sheets, waste
		FROM line_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Type, &it.Params, &it.PriceCents,
			&it.Quantity, &it.Sides, &it.Sheets, &it.Waste); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
