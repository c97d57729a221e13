package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Order struct {
	ID               int64
	Number           string
	Status           Status
	CustomerName     string
	CustomerPhone    string
	CustomerEmail    string
	PaymentChannel   string
	PrepaymentCents  *int64
	PrepaymentStatus *string
	UserID           *int64
	Items            []LineItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineItem never exists without its parent order; deleting the order cascades
// to its items at the store level.
type LineItem struct {
	ID         int64
	OrderID    int64
	Type       string
	Params     json.RawMessage
	PriceCents int64
	Quantity   int
	Sides      int
	Sheets     int
	Waste      int
}

func (o Order) TotalCents() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total
}

// FormatNumber builds the display number once the store has assigned an id.
func FormatNumber(id int64) string {
	return fmt.Sprintf("ORD-%04d", id)
}

// ChatOrder is the denormalized record written by the chat intake bot. It has
// no line-item rows; listings synthesize a single virtual item from it.
type ChatOrder struct {
	ID            int64
	Status        string
	CustomerName  string
	CustomerPhone string
	Description   string
	PriceCents    int64
	Quantity      int
	UserID        *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
