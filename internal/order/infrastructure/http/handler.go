package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	invapp "github.com/printhouse/printflow/internal/inventory/application"
	"github.com/printhouse/printflow/internal/order/application"
	"github.com/printhouse/printflow/internal/order/domain"
	"github.com/printhouse/printflow/pkg/apperr"
	"github.com/printhouse/printflow/pkg/postgres"
)

type Handler struct {
	log        *slog.Logger
	service    *application.Service
	aggregator *application.Aggregator
	ledger     *invapp.Ledger
	db         postgres.Store
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, aggregator *application.Aggregator, ledger *invapp.Ledger, db postgres.Store) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		aggregator: aggregator,
		ledger:     ledger,
		db:         db,
		tracer:     otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", h.listOrders)
	r.Post("/orders", h.createOrder)
	r.Post("/orders/search", h.searchOrders)
	r.Get("/orders/stats", h.stats)
	r.Get("/orders/export", h.exportOrders)
	r.Post("/orders/bulk/status", h.bulkStatus)
	r.Post("/orders/bulk/delete", h.bulkDelete)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Post("/orders/{id}/duplicate", h.duplicateOrder)
	r.Get("/materials/low-stock", h.lowStock)
	return r
}

type itemReq struct {
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Params      json.RawMessage `json:"params"`
	PriceCents  int64           `json:"price_cents"`
	Quantity    int             `json:"quantity"`
	Sides       int             `json:"sides"`
	Sheets      int             `json:"sheets"`
	Waste       int             `json:"waste"`
	Materials   []struct {
		MaterialID int64   `json:"material_id"`
		PerUnitQty float64 `json:"per_unit_qty"`
		TTLHours   int     `json:"ttl_hours"`
	} `json:"materials"`
}

type createOrderReq struct {
	CustomerName     string    `json:"customer_name"`
	CustomerPhone    string    `json:"customer_phone"`
	CustomerEmail    string    `json:"customer_email"`
	PaymentChannel   string    `json:"payment_channel"`
	PrepaymentCents  *int64    `json:"prepayment_cents"`
	PrepaymentStatus *string   `json:"prepayment_status"`
	UserID           *int64    `json:"user_id"`
	Mode             string    `json:"mode"` // "", "reserve", "deduct"
	Items            []itemReq `json:"items"`
}

func (r createOrderReq) customer() application.CustomerInput {
	return application.CustomerInput{
		Name:             r.CustomerName,
		Phone:            r.CustomerPhone,
		Email:            r.CustomerEmail,
		PaymentChannel:   r.PaymentChannel,
		PrepaymentCents:  r.PrepaymentCents,
		PrepaymentStatus: r.PrepaymentStatus,
		UserID:           r.UserID,
	}
}

func (r createOrderReq) items() []application.ItemInput {
	out := make([]application.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		in := application.ItemInput{
			Type:        it.Type,
			Description: it.Description,
			Params:      it.Params,
			PriceCents:  it.PriceCents,
			Quantity:    it.Quantity,
			Sides:       it.Sides,
			Sheets:      it.Sheets,
			Waste:       it.Waste,
		}
		for _, m := range it.Materials {
			in.Materials = append(in.Materials, application.MaterialRequirement{
				MaterialID: m.MaterialID,
				PerUnitQty: m.PerUnitQty,
				TTLHours:   m.TTLHours,
			})
		}
		out = append(out, in)
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var (
		o   domain.Order
		err error
	)
	switch req.Mode {
	case "reserve":
		o, err = h.service.CreateOrderWithReservation(ctx, req.customer(), req.items())
	case "deduct":
		o, err = h.service.CreateOrderWithAutoDeduction(ctx, req.customer(), req.items())
	default:
		o, err = h.service.CreateOrder(ctx, req.customer())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	orders, err := h.aggregator.ListOrders(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req struct {
		Status int `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.service.UpdateOrderStatus(r.Context(), id, domain.Status(req.Status)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DeleteOrder")
	defer span.End()

	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	userID := optionalUserID(r)
	if err := h.service.DeleteOrder(ctx, id, userID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) duplicateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	o, err := h.service.DuplicateOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse(o))
}

type searchReq struct {
	Query          string  `json:"query"`
	Status         *int    `json:"status"`
	From           *string `json:"from"`
	To             *string `json:"to"`
	CustomerName   string  `json:"customer_name"`
	CustomerPhone  string  `json:"customer_phone"`
	CustomerEmail  string  `json:"customer_email"`
	PaymentChannel string  `json:"payment_channel"`
	HasPrepayment  *bool   `json:"has_prepayment"`
	MinTotalCents  *int64  `json:"min_total_cents"`
	MaxTotalCents  *int64  `json:"max_total_cents"`
	UserID         int64   `json:"user_id"`
	Page           int     `json:"page"`
	PerPage        int     `json:"per_page"`
}

func (r searchReq) filters() (application.SearchFilters, error) {
	f := application.SearchFilters{
		Query:          r.Query,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		CustomerEmail:  r.CustomerEmail,
		PaymentChannel: r.PaymentChannel,
		HasPrepayment:  r.HasPrepayment,
		MinTotalCents:  r.MinTotalCents,
		MaxTotalCents:  r.MaxTotalCents,
		Page:           r.Page,
		PerPage:        r.PerPage,
	}
	if r.Status != nil {
		s := domain.Status(*r.Status)
		f.Status = &s
	}
	for _, p := range []struct {
		raw  *string
		dest **time.Time
	}{{r.From, &f.From}, {r.To, &f.To}} {
		if p.raw == nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, *p.raw)
		if err != nil {
			return f, apperr.Validationf("invalid time %q", *p.raw)
		}
		*p.dest = &t
	}
	return f, nil
}

func (h *Handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	var req searchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	f, err := req.filters()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.service.SearchOrders(r.Context(), req.UserID, f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	type row struct {
		Order      any   `json:"order"`
		TotalCents int64 `json:"total_cents"`
	}
	rows := make([]row, 0, len(res.Orders))
	for _, o := range res.Orders {
		rows = append(rows, row{Order: orderResponse(o), TotalCents: o.TotalCents()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": res.Total, "orders": rows})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	st, err := h.service.GetOrdersStats(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) exportOrders(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.csv"`)
	if err := h.service.ExportOrders(r.Context(), w, ownerID, application.SearchFilters{}); err != nil {
		h.log.Error("export failed", "err", err)
	}
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs    []int64 `json:"ids"`
		Status int     `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.service.BulkUpdateOrderStatus(r.Context(), req.IDs, domain.Status(req.Status)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs    []int64 `json:"ids"`
		UserID *int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.service.BulkDeleteOrders(r.Context(), req.IDs, req.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	materials, err := h.ledger.ListLowStock(r.Context(), h.db)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		nf  *apperr.NotFoundError
		val *apperr.ValidationError
		ded *apperr.DeductionError
	)
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &val):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &ded):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "material deduction failed", "reasons": ded.Reasons})
	default:
		h.log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func orderResponse(o domain.Order) map[string]any {
	return map[string]any{
		"id":              o.ID,
		"number":          o.Number,
		"status":          int(o.Status),
		"status_label":    o.Status.Label(),
		"customer_name":   o.CustomerName,
		"customer_phone":  o.CustomerPhone,
		"customer_email":  o.CustomerEmail,
		"payment_channel": o.PaymentChannel,
		"items":           o.Items,
		"created_at":      o.CreatedAt,
		"updated_at":      o.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.Validationf("invalid order id")
	}
	return id, nil
}

func optionalUserID(r *http.Request) *int64 {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
