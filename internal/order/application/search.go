package application

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/printhouse/printflow/internal/order/domain"
)

type SearchFilters struct {
	Query          string
	Status         *domain.Status
	From           *time.Time
	To             *time.Time
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	PaymentChannel string
	HasPrepayment  *bool
	MinTotalCents  *int64
	MaxTotalCents  *int64
	Page           int
	PerPage        int
}

type SearchResult struct {
	Orders []domain.Order
	// Total is the match count after the derived-total filter, before paging.
	Total int
}

// SearchOrders pushes the plain filters into SQL and applies the
// derived-total filter and paging on top, since totals only exist as
// price × quantity over line items. An order with zero items totals 0.
func (s *Service) SearchOrders(ctx context.Context, ownerID int64, f SearchFilters) (SearchResult, error) {
	rows, err := s.orders.Search(ctx, s.db, ownerID, f)
	if err != nil {
		return SearchResult{}, err
	}

	matched := rows[:0]
	for _, o := range rows {
		total := o.TotalCents()
		if f.MinTotalCents != nil && total < *f.MinTotalCents {
			continue
		}
		if f.MaxTotalCents != nil && total > *f.MaxTotalCents {
			continue
		}
		matched = append(matched, o)
	}

	res := SearchResult{Total: len(matched)}
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return res, nil
	}
	end := start + perPage
	if end > len(matched) {
		end = len(matched)
	}
	res.Orders = matched[start:end]
	return res, nil
}

type Stats struct {
	Total        int
	ByStatus     map[domain.Status]int
	RevenueCents int64
}

func (s *Service) GetOrdersStats(ctx context.Context, ownerID int64) (Stats, error) {
	orders, err := s.orders.ListVisible(ctx, s.db, ownerID)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{ByStatus: map[domain.Status]int{}}
	for _, o := range orders {
		st.Total++
		st.ByStatus[o.Status]++
		st.RevenueCents += o.TotalCents()
	}
	return st, nil
}

// ExportOrders writes the filtered orders as CSV. Paging filters are ignored
// so an export always covers the whole match set.
func (s *Service) ExportOrders(ctx context.Context, w io.Writer, ownerID int64, f SearchFilters) error {
	f.Page = 0
	f.PerPage = 0
	rows, err := s.orders.Search(ctx, s.db, ownerID, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"number", "status", "customer", "phone", "total", "created_at"}); err != nil {
		return err
	}
	for _, o := range rows {
		total := o.TotalCents()
		if f.MinTotalCents != nil && total < *f.MinTotalCents {
			continue
		}
		if f.MaxTotalCents != nil && total > *f.MaxTotalCents {
			continue
		}
		rec := []string{
			o.Number,
			o.Status.Label(),
			o.CustomerName,
			o.CustomerPhone,
			fmt.Sprintf("%.2f", float64(total)/100),
			o.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
