package entity

import "storefront/internal/money"

// CartLine is one product in the shopper's cart. Name and price are
// snapshots taken by the service when the line was added.
type CartLine struct {
	ProductID   int64        `json:"productId"`
	ProductName string       `json:"productName"`
	Price       money.Amount `json:"price"`
	Quantity    int          `json:"quantity"`
}

// Subtotal is price x quantity.
func (l CartLine) Subtotal() money.Amount {
	return l.Price.Mul(l.Quantity)
}

// Cart keys lines by product id and remembers the order the service
// returned them in.
type Cart struct {
	lines map[int64]CartLine
	order []int64
}

// NewCart builds a cart from the service's line listing. A repeated
// product id keeps the last line seen.
func NewCart(lines []CartLine) Cart {
	c := Cart{lines: make(map[int64]CartLine, len(lines))}
	for _, line := range lines {
		if _, ok := c.lines[line.ProductID]; !ok {
			c.order = append(c.order, line.ProductID)
		}
		c.lines[line.ProductID] = line
	}
	return c
}

func (c Cart) Line(productID int64) (CartLine, bool) {
	line, ok := c.lines[productID]
	return line, ok
}

// Lines returns the lines in service order.
func (c Cart) Lines() []CartLine {
	out := make([]CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

func (c Cart) Len() int {
	return len(c.order)
}

// Total is computed on every call and never cached.
func (c Cart) Total() money.Amount {
	total := money.Zero()
	for _, id := range c.order {
		total = total.Add(c.lines[id].Subtotal())
	}
	return total
}
