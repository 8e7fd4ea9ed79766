package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/entity"
)

// cartRequest is the body of POST and PUT /cart.
type cartRequest struct {
	UserID    string `json:"userId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// orderRequest is the body of POST /orders.
type orderRequest struct {
	UserID        string `json:"userId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

// ListProducts --> GET /products
func (c *Client) ListProducts(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := c.do(ctx, request{op: "list products", method: http.MethodGet, path: []string{"products"}}, &products)
	return products, err
}

// SearchProducts --> GET /products/search?keyword=
func (c *Client) SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Invalid("keyword", "search keyword is required")
	}
	var products []entity.Product
	err := c.do(ctx, request{
		op:     "search products",
		method: http.MethodGet,
		path:   []string{"products", "search"},
		query:  url.Values{"keyword": {keyword}},
	}, &products)
	return products, err
}

// ListProductsByCategory --> GET /products/category/{category}
func (c *Client) ListProductsByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperr.Invalid("category", "category is required")
	}
	var products []entity.Product
	err := c.do(ctx, request{
		op:     "list products by category",
		method: http.MethodGet,
		path:   []string{"products", "category", category},
	}, &products)
	return products, err
}

// GetProduct --> GET /products/{id}?userId=
// The service records a recent view for shopperID when it is set.
func (c *Client) GetProduct(ctx context.Context, productID int64, shopperID string) (entity.Product, error) {
	var query url.Values
	if shopperID != "" {
		query = url.Values{"userId": {shopperID}}
	}
	var product entity.Product
	err := c.do(ctx, request{
		op:     "get product",
		method: http.MethodGet,
		path:   []string{"products", id(productID)},
		query:  query,
	}, &product)
	return product, err
}

// GetCart --> GET /cart/{shopperId}
func (c *Client) GetCart(ctx context.Context, shopperID string) ([]entity.CartLine, error) {
	if err := requireShopper(shopperID); err != nil {
		return nil, err
	}
	var lines []entity.CartLine
	err := c.do(ctx, request{op: "get cart", method: http.MethodGet, path: []string{"cart", shopperID}}, &lines)
	return lines, err
}

// AddCartLine --> POST /cart
func (c *Client) AddCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	if quantity < 1 {
		return apperr.Invalid("quantity", "quantity must be at least 1")
	}
	return c.do(ctx, request{
		op:     "add cart line",
		method: http.MethodPost,
		path:   []string{"cart"},
		body:   cartRequest{UserID: shopperID, ProductID: productID, Quantity: quantity},
	}, nil)
}

// UpdateCartLine --> PUT /cart
func (c *Client) UpdateCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	if quantity < 0 {
		return apperr.Invalid("quantity", "quantity cannot be negative")
	}
	return c.do(ctx, request{
		op:     "update cart line",
		method: http.MethodPut,
		path:   []string{"cart"},
		body:   cartRequest{UserID: shopperID, ProductID: productID, Quantity: quantity},
	}, nil)
}

// RemoveCartLine --> DELETE /cart/{shopperId}/{productId}
func (c *Client) RemoveCartLine(ctx context.Context, shopperID string, productID int64) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	return c.do(ctx, request{
		op:     "remove cart line",
		method: http.MethodDelete,
		path:   []string{"cart", shopperID, id(productID)},
	}, nil)
}

// ClearCart --> DELETE /cart/{shopperId}
func (c *Client) ClearCart(ctx context.Context, shopperID string) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	return c.do(ctx, request{op: "clear cart", method: http.MethodDelete, path: []string{"cart", shopperID}}, nil)
}

// CreateOrder --> POST /orders
func (c *Client) CreateOrder(ctx context.Context, shopperID, customerName, customerEmail string) (entity.Order, error) {
	if err := requireShopper(shopperID); err != nil {
		return entity.Order{}, err
	}
	customerName = strings.TrimSpace(customerName)
	customerEmail = strings.TrimSpace(customerEmail)
	if customerName == "" {
		return entity.Order{}, apperr.Invalid("customerName", "customer name is required")
	}
	if customerEmail == "" {
		return entity.Order{}, apperr.Invalid("customerEmail", "customer email is required")
	}

	var order entity.Order
	err := c.do(ctx, request{
		op:     "create order",
		method: http.MethodPost,
		path:   []string{"orders"},
		body:   orderRequest{UserID: shopperID, CustomerName: customerName, CustomerEmail: customerEmail},
	}, &order)
	return order, err
}

// GetOrder --> GET /orders/{id}
func (c *Client) GetOrder(ctx context.Context, orderID int64) (entity.Order, error) {
	var order entity.Order
	err := c.do(ctx, request{op: "get order", method: http.MethodGet, path: []string{"orders", id(orderID)}}, &order)
	return order, err
}

// GetOrdersByEmail --> GET /orders/customer/{email}
func (c *Client) GetOrdersByEmail(ctx context.Context, email string) ([]entity.Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Invalid("email", "email is required")
	}
	var orders []entity.Order
	err := c.do(ctx, request{
		op:     "get orders by email",
		method: http.MethodGet,
		path:   []string{"orders", "customer", email},
	}, &orders)
	return orders, err
}

// GetRecentViews --> GET /recent-views/{shopperId}
func (c *Client) GetRecentViews(ctx context.Context, shopperID string) ([]entity.Product, error) {
	if err := requireShopper(shopperID); err != nil {
		return nil, err
	}
	var products []entity.Product
	err := c.do(ctx, request{
		op:     "get recent views",
		method: http.MethodGet,
		path:   []string{"recent-views", shopperID},
	}, &products)
	return products, err
}

// CountRecentViews --> GET /recent-views/{shopperId}/count
func (c *Client) CountRecentViews(ctx context.Context, shopperID string) (int64, error) {
	if err := requireShopper(shopperID); err != nil {
		return 0, err
	}
	var count int64
	err := c.do(ctx, request{
		op:     "count recent views",
		method: http.MethodGet,
		path:   []string{"recent-views", shopperID, "count"},
	}, &count)
	return count, err
}

// RemoveRecentView --> DELETE /recent-views/{shopperId}/{productId}
func (c *Client) RemoveRecentView(ctx context.Context, shopperID string, productID int64) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	return c.do(ctx, request{
		op:     "remove recent view",
		method: http.MethodDelete,
		path:   []string{"recent-views", shopperID, id(productID)},
	}, nil)
}

// ClearRecentViews --> DELETE /recent-views/{shopperId}
func (c *Client) ClearRecentViews(ctx context.Context, shopperID string) error {
	if err := requireShopper(shopperID); err != nil {
		return err
	}
	return c.do(ctx, request{
		op:     "clear recent views",
		method: http.MethodDelete,
		path:   []string{"recent-views", shopperID},
	}, nil)
}
