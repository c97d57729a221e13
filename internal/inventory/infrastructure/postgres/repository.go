package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

type Repository struct {
	log *slog.Logger
}

func NewRepository(log *slog.Logger) *Repository {
	return &Repository{log: log}
}

func (r *Repository) Get(ctx context.Context, db postgres.DBTX, id int64) (domain.Material, error) {
	return r.scanOne(ctx, db, `SELECT id, name, quantity, min_quantity FROM materials WHERE id=$1`, id)
}

func (r *Repository) GetForUpdate(ctx context.Context, db postgres.DBTX, id int64) (domain.Material, error) {
	return r.scanOne(ctx, db, `SELECT id, name, quantity, min_quantity FROM materials WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repository) scanOne(ctx context.Context, db postgres.DBTX, sql string, id int64) (domain.Material, error) {
	var m domain.Material
	err := db.QueryRow(ctx, sql, id).Scan(&m.ID, &m.Name, &m.Quantity, &m.MinQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Material{}, apperr.NotFound("material", id)
	}
	if err != nil {
		return domain.Material{}, err
	}
	return m, nil
}

func (r *Repository) AdjustQuantity(ctx context.Context, db postgres.DBTX, id int64, delta float64) (bool, error) {
	ct, err := db.Exec(ctx, `UPDATE materials SET quantity = quantity + $2 WHERE id=$1`, id, delta)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repository) InsertMove(ctx context.Context, db postgres.DBTX, m domain.Move) error {
	_, err := db.Exec(ctx, `INSERT INTO material_moves (material_id, delta, reason, order_id, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.MaterialID, m.Delta, m.Reason, m.OrderID, m.UserID, m.CreatedAt)
	return err
}

func (r *Repository) InsertReservation(ctx context.Context, db postgres.DBTX, res domain.Reservation) error {
	_, err := db.Exec(ctx, `INSERT INTO reservations (material_id, quantity, order_id, reason, expires_at)
		VALUES ($1,$2,$3,$4,$5)`,
		res.MaterialID, res.Quantity, res.OrderID, res.Reason, res.ExpiresAt)
	return err
}

func (r *Repository) DeleteReservationsForOrder(ctx context.Context, db postgres.DBTX, orderID int64) error {
	_, err := db.Exec(ctx, `DELETE FROM reservations WHERE order_id=$1`, orderID)
	return err
}

func (r *Repository) ListLowStock(ctx context.Context, db postgres.DBTX) ([]domain.Material, error) {
	rows, err := db.Query(ctx, `SELECT id, name, quantity, min_quantity FROM materials
		WHERE quantity <= min_quantity ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Material
	for rows.Next() {
		var m domain.Material
		if err := rows.Scan(&m.ID, &m.Name, &m.Quantity, &m.MinQuantity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CompositionStore reads the static product-composition reference data.
type CompositionStore struct{}

func NewCompositionStore() *CompositionStore { return &CompositionStore{} }

func (s *CompositionStore) Resolve(ctx context.Context, db postgres.DBTX, itemType, description string) ([]domain.Composition, error) {
	rows, err := db.Query(ctx, `SELECT material_id, qty_per_unit FROM product_compositions
		WHERE item_type=$1 AND description=$2`, itemType, description)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Composition
	for rows.Next() {
		var c domain.Composition
		if err := rows.Scan(&c.MaterialID, &c.QtyPerUnit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
