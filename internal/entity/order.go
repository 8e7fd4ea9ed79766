package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront/internal/money"
)

type Order struct {
	ID            int64        `json:"id"`
	CustomerName  string       `json:"customerName"`
	CustomerEmail string       `json:"customerEmail"`
	TotalAmount   money.Amount `json:"totalAmount"`
	Status        string       `json:"status"` // e.g. "PENDING", "CONFIRMED"; owned by the service
	CreatedAt     Timestamp    `json:"createdAt"`
	Items         []OrderItem  `json:"orderItems"`
}

// OrderItem carries the unit price charged when the order was placed.
type OrderItem struct {
	ID       int64        `json:"id"`
	Product  Product      `json:"product"`
	Quantity int          `json:"quantity"`
	Price    money.Amount `json:"price"`
}

func (i OrderItem) Subtotal() money.Amount {
	return i.Price.Mul(i.Quantity)
}

// Timestamp decodes the service's zone-less local date-times as well as
// RFC 3339 strings and [y,m,d,h,mi,s,ns] arrays.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	if data[0] == '[' {
		var parts []int
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("timestamp array: %w", err)
		}
		if len(parts) < 3 {
			return fmt.Errorf("timestamp array: want at least 3 fields, got %d", len(parts))
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		t.Time = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], parts[6], time.Local)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
