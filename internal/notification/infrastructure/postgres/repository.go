package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/printhouse/printflow/internal/notification/application"
	"github.com/printhouse/printflow/internal/notification/domain"
	orderdomain "github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/postgres"
)

type Repository struct {
	log *slog.Logger
	db  postgres.DBTX
}

func NewRepository(log *slog.Logger, db postgres.DBTX) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) ListEnabled(ctx context.Context) ([]domain.Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, scope, from_status, to_status, delay_hours, template, enabled
		FROM notification_rules WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		var (
			rule       domain.Rule
			scope      string
			fromStatus *int
			toStatus   int
		)
		if err := rows.Scan(&rule.ID, &scope, &fromStatus, &toStatus, &rule.DelayHours, &rule.Template, &rule.Enabled); err != nil {
			return nil, err
		}
		rule.Scope = domain.Scope(scope)
		rule.ToStatus = orderdomain.Status(toStatus)
		if fromStatus != nil {
			s := orderdomain.Status(*fromStatus)
			rule.FromStatus = &s
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *Repository) Exists(ctx context.Context, orderID int64, channel orderdomain.Source, ruleID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification_logs
		WHERE order_id=$1 AND channel=$2 AND rule_id=$3`, orderID, string(channel), ruleID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Repository) Insert(ctx context.Context, l domain.Log) error {
	_, err := r.db.Exec(ctx, `INSERT INTO notification_logs
		(order_id, channel, rule_id, message, sent_at, status, error)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		l.OrderID, string(l.Channel), l.RuleID, l.Message, l.SentAt, string(l.Status), l.Error)
	return err
}

func (r *Repository) ListCandidates(ctx context.Context, scope domain.Scope, status orderdomain.Status, updatedAfter time.Time) ([]application.Candidate, error) {
	var out []application.Candidate

	if scope == domain.ScopeAll || scope == domain.ScopeDirect {
		rows, err := r.db.Query(ctx, `SELECT id, number, customer_name, status, created_at, updated_at
			FROM orders WHERE status=$1 AND updated_at >= $2`, int(status), updatedAfter)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var (
				c  application.Candidate
				st int
			)
			if err := rows.Scan(&c.OrderID, &c.Number, &c.CustomerName, &st, &c.CreatedAt, &c.UpdatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			c.Channel = orderdomain.SourceDirect
			c.Status = orderdomain.Status(st)
			out = append(out, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	if scope == domain.ScopeAll || scope == domain.ScopeChat {
		native, ok := orderdomain.ChatStatusFor(status)
		if !ok {
			return out, nil
		}
		rows, err := r.db.Query(ctx, `SELECT id, customer_name, created_at, updated_at
			FROM chat_orders WHERE status=$1 AND updated_at >= $2`, native, updatedAfter)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var c application.Candidate
			if err := rows.Scan(&c.OrderID, &c.CustomerName, &c.CreatedAt, &c.UpdatedAt); err != nil {
				rows.Close()
				return nil, err
			}
			c.Channel = orderdomain.SourceChat
			c.Number = orderdomain.SyntheticNumber(orderdomain.SourceChat, c.OrderID)
			c.Status = status
			out = append(out, c)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return out, nil
}
