package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/printhouse/printflow/internal/order/application"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

const chatColumns = `id, status, customer_name, customer_phone, description,
	price_cents, quantity, user_id, created_at, updated_at`

// ChatOrderRepository reads the denormalized rows written by the chat intake
// bot. Their status column keeps the bot's native vocabulary.
type ChatOrderRepository struct {
	log *slog.Logger
}

func NewChatOrderRepository(log *slog.Logger) *ChatOrderRepository {
	return &ChatOrderRepository{log: log}
}

func (r *ChatOrderRepository) Get(ctx context.Context, db postgres.DBTX, id int64) (domain.ChatOrder, error) {
	var c domain.ChatOrder
	err := db.QueryRow(ctx, `SELECT `+chatColumns+` FROM chat_orders WHERE id=$1`, id).
		Scan(&c.ID, &c.Status, &c.CustomerName, &c.CustomerPhone, &c.Description,
			&c.PriceCents, &c.Quantity, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChatOrder{}, apperr.NotFound("chat order", id)
	}
	if err != nil {
		return domain.ChatOrder{}, err
	}
	return c, nil
}

func (r *ChatOrderRepository) UpdateStatus(ctx context.Context, db postgres.DBTX, id int64, native string, now time.Time) (bool, error) {
	ct, err := db.Exec(ctx, `UPDATE chat_orders SET status=$2, updated_at=$3 WHERE id=$1`, id, native, now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *ChatOrderRepository) ListVisible(ctx context.Context, db postgres.DBTX, ownerID int64) ([]domain.ChatOrder, error) {
	rows, err := db.Query(ctx, `SELECT `+chatColumns+` FROM chat_orders
		WHERE user_id=$1 OR user_id IS NULL
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ChatOrder
	for rows.Next() {
		var c domain.ChatOrder
		if err := rows.Scan(&c.ID, &c.Status, &c.CustomerName, &c.CustomerPhone, &c.Description,
			&c.PriceCents, &c.Quantity, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type PoolRepository struct {
	log *slog.Logger
}

func NewPoolRepository(log *slog.Logger) *PoolRepository {
	return &PoolRepository{log: log}
}

func (r *PoolRepository) ListAssignments(ctx context.Context, db postgres.DBTX, userID int64) ([]application.PoolAssignment, error) {
	rows, err := db.Query(ctx, `SELECT source, source_order_id FROM pool_assignments
		WHERE user_id=$1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []application.PoolAssignment
	for rows.Next() {
		var (
			source string
			id     int64
		)
		if err := rows.Scan(&source, &id); err != nil {
			return nil, err
		}
		out = append(out, application.PoolAssignment{Source: domain.Source(source), OrderID: id})
	}
	return out, rows.Err()
}
