package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "ORD-0007", FormatNumber(7))
	assert.Equal(t, "ORD-0042", FormatNumber(42))
	assert.Equal(t, "ORD-12345", FormatNumber(12345))
}

func TestMapChatStatus(t *testing.T) {
	assert.Equal(t, StatusAccepted, MapChatStatus("new"))
	assert.Equal(t, StatusInProgress, MapChatStatus("confirmed"))
	assert.Equal(t, StatusCancelled, MapChatStatus("cancelled"))
	assert.Equal(t, StatusAccepted, MapChatStatus("garbage"))
}

func TestChatStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{
		StatusAccepted, StatusInProgress, StatusReady,
		StatusPrinting, StatusCompleted, StatusDelivered, StatusCancelled,
	} {
		native, ok := ChatStatusFor(s)
		assert.True(t, ok)
		assert.Equal(t, s, MapChatStatus(native))
	}
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, Status(1).Valid())
	assert.True(t, Status(9).Valid())
	assert.False(t, Status(7).Valid())
	assert.False(t, Status(0).Valid())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPrinting.Terminal())
}

func TestItemDescription(t *testing.T) {
	assert.Equal(t, "A5 flyer", ItemDescription(json.RawMessage(`{"description":"A5 flyer"}`)))
	assert.Equal(t, "", ItemDescription(nil))
	assert.Equal(t, CorruptItemDescription, ItemDescription(json.RawMessage(`{{`)))
}

func TestChatOrderNormalize(t *testing.T) {
	c := ChatOrder{
		ID: 3, Status: "done", CustomerName: "Eve",
		Description: "stickers", PriceCents: 150, Quantity: 0,
	}
	n := c.Normalize()
	assert.Equal(t, "chat-ord-3", n.Number)
	assert.Equal(t, StatusCompleted, n.Status)
	assert.Len(t, n.Items, 1)
	// zero quantity is normalized to a single unit
	assert.Equal(t, 1, n.Items[0].Quantity)
	assert.Equal(t, int64(150), n.TotalCents)
}

func TestOrderTotalCents(t *testing.T) {
	o := Order{Items: []LineItem{
		{PriceCents: 100, Quantity: 3},
		{PriceCents: 250, Quantity: 2},
	}}
	assert.Equal(t, int64(800), o.TotalCents())
	assert.Equal(t, int64(0), Order{}.TotalCents())
}
