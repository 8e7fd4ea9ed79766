package entity

import "storefront/internal/money"

type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       money.Amount `json:"price"`
	Stock       int          `json:"stock"`
	Category    string       `json:"category"`
}

// InStock reports whether the product can be added to a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}

/*
Remote payload for GET /api/products/{id}:

{
  "id": 1,
  "name": "Widget",
  "description": "...",
  "price": 1000.00,
  "stock": 2,
  "category": "tools"
}

Search results come from the search index and may carry the price as a string.
*/
