package domain

import "time"

type Material struct {
	ID          int64
	Name        string
	Quantity    float64
	MinQuantity float64
}

// LowStock reports whether on-hand quantity has fallen to the signalling
// threshold. Nothing is enforced on it.
func (m Material) LowStock() bool {
	return m.Quantity <= m.MinQuantity
}

// Move is the audit record paired with every ledger mutation. A quantity
// change without a matching move row is a bug.
type Move struct {
	ID         int64
	MaterialID int64
	Delta      float64
	Reason     string
	OrderID    *int64
	UserID     *int64
	CreatedAt  time.Time
}

// Reservation is a soft hold: it does not change on-hand quantity. Past
// ExpiresAt it must be treated as void by any consumer.
type Reservation struct {
	ID         int64
	MaterialID int64
	Quantity   float64
	OrderID    int64
	Reason     string
	ExpiresAt  time.Time
}

func (r Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type ReservationRequest struct {
	MaterialID int64
	Quantity   float64
	OrderID    int64
	Reason     string
	TTLHours   int
}

// Composition maps one material requirement of a product, per produced unit.
type Composition struct {
	MaterialID int64
	QtyPerUnit float64
}

// DeductionItem is what the deduction pass needs to know about a line item.
type DeductionItem struct {
	Type        string
	Description string
	Quantity    int
}

// DeductionResult reports every failure collected during a pass; the caller
// decides what to do with a partial outcome, normally rolling the whole
// transaction back.
type DeductionResult struct {
	Success bool
	Errors  []string
}
