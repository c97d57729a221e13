package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

// Aggregator merges the order populations of every intake channel into one
// normalized view. Each channel contributes a sourceRef variant with its own
// normalization; adding a channel means adding one variant, not another
// conditional.
type Aggregator struct {
	log    *slog.Logger
	db     postgres.Store
	orders OrderRepository
	items  LineItemRepository
	chat   ChatOrderRepository
	pool   PoolRepository
}

func NewAggregator(log *slog.Logger, db postgres.Store, orders OrderRepository, items LineItemRepository, chat ChatOrderRepository, pool PoolRepository) *Aggregator {
	return &Aggregator{log: log, db: db, orders: orders, items: items, chat: chat, pool: pool}
}

type sourceRef interface {
	key() string
	normalize(ctx context.Context, a *Aggregator) (domain.NormalizedOrder, error)
}

type directRef struct{ order domain.Order }

func (r directRef) key() string { return domain.RefKey(domain.SourceDirect, r.order.ID) }

func (r directRef) normalize(ctx context.Context, a *Aggregator) (domain.NormalizedOrder, error) {
	o := r.order
	if o.Items == nil {
		items, err := a.items.ListByOrder(ctx, a.db, o.ID)
		if err != nil {
			return domain.NormalizedOrder{}, err
		}
		o.Items = items
	}
	return o.Normalize(), nil
}

type chatRef struct{ order domain.ChatOrder }

func (r chatRef) key() string { return domain.RefKey(domain.SourceChat, r.order.ID) }

func (r chatRef) normalize(context.Context, *Aggregator) (domain.NormalizedOrder, error) {
	return r.order.Normalize(), nil
}

// poolRef is an assignment pointing into another population; it resolves the
// underlying order and materializes the synthetic pool number.
type poolRef struct {
	source domain.Source
	id     int64
}

func (r poolRef) key() string { return domain.RefKey(r.source, r.id) }

func (r poolRef) normalize(ctx context.Context, a *Aggregator) (domain.NormalizedOrder, error) {
	switch r.source {
	case domain.SourceChat:
		c, err := a.chat.Get(ctx, a.db, r.id)
		if err != nil {
			return domain.NormalizedOrder{}, err
		}
		n := c.Normalize()
		n.Number = domain.SyntheticNumber(r.source, r.id)
		return n, nil
	default:
		o, err := a.orders.Get(ctx, a.db, r.id)
		if err != nil {
			return domain.NormalizedOrder{}, err
		}
		n, err := directRef{order: o}.normalize(ctx, a)
		if err != nil {
			return domain.NormalizedOrder{}, err
		}
		n.Number = domain.SyntheticNumber(r.source, r.id)
		return n, nil
	}
}

// ListOrders unions orders owned by (or visible to) ownerID, pool
// assignments, and chat-channel orders. Duplicates sharing a normalized id
// are suppressed, first occurrence wins; each population arrives newest
// first.
func (a *Aggregator) ListOrders(ctx context.Context, ownerID int64) ([]domain.NormalizedOrder, error) {
	var refs []sourceRef

	direct, err := a.orders.ListVisible(ctx, a.db, ownerID)
	if err != nil {
		return nil, err
	}
	for _, o := range direct {
		refs = append(refs, directRef{order: o})
	}

	assignments, err := a.pool.ListAssignments(ctx, a.db, ownerID)
	if err != nil {
		return nil, err
	}
	for _, as := range assignments {
		refs = append(refs, poolRef{source: as.Source, id: as.OrderID})
	}

	chats, err := a.chat.ListVisible(ctx, a.db, ownerID)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		refs = append(refs, chatRef{order: c})
	}

	seen := make(map[string]struct{}, len(refs))
	out := make([]domain.NormalizedOrder, 0, len(refs))
	for _, ref := range refs {
		if _, dup := seen[ref.key()]; dup {
			continue
		}
		n, err := ref.normalize(ctx, a)
		if err != nil {
			// a dangling pool assignment must not break the listing
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				a.log.Warn("skipping unresolvable order ref", "key", ref.key(), "err", err)
				continue
			}
			return nil, err
		}
		seen[ref.key()] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}
