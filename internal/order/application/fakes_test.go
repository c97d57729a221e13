package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	invdomain "github.com/printhouse/printflow/internal/inventory/domain"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

type stubQuerier struct{}

func (stubQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (stubQuerier) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

type fakeTx struct {
	stubQuerier
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeStore struct {
	stubQuerier
	last *fakeTx
}

func (s *fakeStore) Begin(context.Context) (postgres.Tx, error) {
	s.last = &fakeTx{}
	return s.last, nil
}

type fakeOrderRepo struct {
	nextID  int64
	orders  map[int64]domain.Order
	visible []domain.Order
	results []domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]domain.Order{}}
}

func (r *fakeOrderRepo) Insert(_ context.Context, _ postgres.DBTX, o *domain.Order) error {
	r.nextID++
	o.ID = r.nextID
	r.orders[o.ID] = *o
	return nil
}

func (r *fakeOrderRepo) SetNumber(_ context.Context, _ postgres.DBTX, id int64, number string) error {
	o := r.orders[id]
	o.Number = number
	r.orders[id] = o
	return nil
}

func (r *fakeOrderRepo) Get(_ context.Context, _ postgres.DBTX, id int64) (domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, _ postgres.DBTX, id int64, status domain.Status, now time.Time) (bool, error) {
	o, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = now
	r.orders[id] = o
	return true, nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, _ postgres.DBTX, id int64) (bool, error) {
	if _, ok := r.orders[id]; !ok {
		return false, nil
	}
	delete(r.orders, id)
	return true, nil
}

func (r *fakeOrderRepo) ListVisible(context.Context, postgres.DBTX, int64) ([]domain.Order, error) {
	return r.visible, nil
}

func (r *fakeOrderRepo) Search(context.Context, postgres.DBTX, int64, SearchFilters) ([]domain.Order, error) {
	return r.results, nil
}

type fakeItemRepo struct {
	byOrder map[int64][]domain.LineItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{byOrder: map[int64][]domain.LineItem{}}
}

func (r *fakeItemRepo) InsertBatch(_ context.Context, _ postgres.DBTX, orderID int64, items []domain.LineItem) error {
	r.byOrder[orderID] = append(r.byOrder[orderID], items...)
	return nil
}

func (r *fakeItemRepo) ListByOrder(_ context.Context, _ postgres.DBTX, orderID int64) ([]domain.LineItem, error) {
	return r.byOrder[orderID], nil
}

type fakeChatRepo struct {
	orders map[int64]domain.ChatOrder
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{orders: map[int64]domain.ChatOrder{}}
}

func (r *fakeChatRepo) Get(_ context.Context, _ postgres.DBTX, id int64) (domain.ChatOrder, error) {
	c, ok := r.orders[id]
	if !ok {
		return domain.ChatOrder{}, apperr.NotFound("chat order", id)
	}
	return c, nil
}

func (r *fakeChatRepo) UpdateStatus(_ context.Context, _ postgres.DBTX, id int64, native string, now time.Time) (bool, error) {
	c, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	c.Status = native
	c.UpdatedAt = now
	r.orders[id] = c
	return true, nil
}

func (r *fakeChatRepo) ListVisible(context.Context, postgres.DBTX, int64) ([]domain.ChatOrder, error) {
	out := make([]domain.ChatOrder, 0, len(r.orders))
	for _, c := range r.orders {
		out = append(out, c)
	}
	return out, nil
}

type fakePoolRepo struct {
	assignments []PoolAssignment
}

func (r *fakePoolRepo) ListAssignments(context.Context, postgres.DBTX, int64) ([]PoolAssignment, error) {
	return r.assignments, nil
}

type fakeReserver struct {
	reqs     []invdomain.ReservationRequest
	released []int64
	err      error
}

func (r *fakeReserver) ReserveMaterials(_ context.Context, _ postgres.DBTX, reqs []invdomain.ReservationRequest) error {
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, reqs...)
	return nil
}

func (r *fakeReserver) ReleaseForOrder(_ context.Context, _ postgres.DBTX, orderID int64) error {
	r.released = append(r.released, orderID)
	return nil
}

type fakeDeducter struct {
	result invdomain.DeductionResult
	items  []invdomain.DeductionItem
}

func (d *fakeDeducter) DeductForOrder(_ context.Context, _ postgres.DBTX, _ int64, items []invdomain.DeductionItem, _ *int64) invdomain.DeductionResult {
	d.items = items
	return d.result
}

type delta struct {
	materialID int64
	qty        float64
	reason     string
	orderID    *int64
}

type fakeLedger struct {
	deltas []delta
	err    error
}

func (l *fakeLedger) ApplyDelta(_ context.Context, _ postgres.DBTX, materialID int64, qty float64, reason string, orderID, _ *int64) error {
	if l.err != nil {
		return l.err
	}
	l.deltas = append(l.deltas, delta{materialID: materialID, qty: qty, reason: reason, orderID: orderID})
	return nil
}

type fakeResolver struct {
	byKey map[string][]invdomain.Composition
}

func (r *fakeResolver) Resolve(_ context.Context, _ postgres.DBTX, itemType, description string) ([]invdomain.Composition, error) {
	return r.byKey[itemType+"|"+description], nil
}

type deps struct {
	store    *fakeStore
	orders   *fakeOrderRepo
	items    *fakeItemRepo
	chat     *fakeChatRepo
	pool     *fakePoolRepo
	reserver *fakeReserver
	deducter *fakeDeducter
	ledger   *fakeLedger
	resolver *fakeResolver
}

func newDeps() *deps {
	return &deps{
		store:    &fakeStore{},
		orders:   newFakeOrderRepo(),
		items:    newFakeItemRepo(),
		chat:     newFakeChatRepo(),
		pool:     &fakePoolRepo{},
		reserver: &fakeReserver{},
		deducter: &fakeDeducter{result: invdomain.DeductionResult{Success: true}},
		ledger:   &fakeLedger{},
		resolver: &fakeResolver{byKey: map[string][]invdomain.Composition{}},
	}
}

func (d *deps) service() *Service {
	return NewService(slog.Default(), d.store, d.orders, d.items, d.chat,
		d.reserver, d.deducter, d.ledger, d.resolver)
}

func (d *deps) aggregator() *Aggregator {
	return NewAggregator(slog.Default(), d.store, d.orders, d.items, d.chat, d.pool)
}
