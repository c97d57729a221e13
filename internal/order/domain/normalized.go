package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies the intake channel an order originated from.
type Source string

const (
	SourceDirect Source = "direct"
	SourceChat   Source = "chat"
)

// CorruptItemDescription is the sentinel substituted when a stored parameter
// bag cannot be parsed. One malformed item must not make a listing unusable.
const CorruptItemDescription = "corrupt item data"

// NormalizedOrder is the channel-independent shape every listing works with.
type NormalizedOrder struct {
	ID            int64
	Key           string
	Number        string
	Source        Source
	Status        Status
	CustomerName  string
	CustomerPhone string
	TotalCents    int64
	Items         []NormalizedItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type NormalizedItem struct {
	Type        string
	Description string
	Params      json.RawMessage
	PriceCents  int64
	Quantity    int
}

// RefKey is the dedupe key for a (source, id) pair; ids are not unique across
// populations.
func RefKey(source Source, id int64) string {
	return fmt.Sprintf("%s:%d", source, id)
}

// SyntheticNumber is the display number materialized for pool-assigned orders.
func SyntheticNumber(source Source, id int64) string {
	return fmt.Sprintf("%s-ord-%d", source, id)
}

// ItemDescription extracts the human description from a parameter bag,
// falling back to the corrupt-data sentinel when the bag does not parse.
func ItemDescription(params json.RawMessage) string {
	if len(params) == 0 {
		return ""
	}
	var bag struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(params, &bag); err != nil {
		return CorruptItemDescription
	}
	return bag.Description
}

// Normalize reshapes a direct order. Item descriptions degrade to the
// sentinel instead of propagating parse errors.
func (o Order) Normalize() NormalizedOrder {
	n := NormalizedOrder{
		ID:            o.ID,
		Key:           RefKey(SourceDirect, o.ID),
		Number:        o.Number,
		Source:        SourceDirect,
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, it := range o.Items {
		n.Items = append(n.Items, NormalizedItem{
			Type:        it.Type,
			Description: ItemDescription(it.Params),
			Params:      it.Params,
			PriceCents:  it.PriceCents,
			Quantity:    it.Quantity,
		})
	}
	n.TotalCents = o.TotalCents()
	return n
}

// Normalize reshapes a chat order, synthesizing its single virtual line item
// from the denormalized fields.
func (c ChatOrder) Normalize() NormalizedOrder {
	qty := c.Quantity
	if qty <= 0 {
		qty = 1
	}
	return NormalizedOrder{
		ID:            c.ID,
		Key:           RefKey(SourceChat, c.ID),
		Number:        SyntheticNumber(SourceChat, c.ID),
		Source:        SourceChat,
		Status:        MapChatStatus(c.Status),
		CustomerName:  c.CustomerName,
		CustomerPhone: c.CustomerPhone,
		TotalCents:    c.PriceCents * int64(qty),
		Items: []NormalizedItem{{
			Type:        "chat",
			Description: c.Description,
			PriceCents:  c.PriceCents,
			Quantity:    qty,
		}},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
