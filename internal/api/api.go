package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/entity"
	"storefront/internal/money"
	"storefront/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

// Storefront is the store surface the handlers drive. *store.Store satisfies it.
type Storefront interface {
	Snapshot() store.Snapshot
	Formatter() money.Formatter
	SetActiveView(v store.View) error
	DismissNotice()

	LoadCatalog(ctx context.Context) error
	SearchCatalog(ctx context.Context, keyword string) error
	FilterCategory(ctx context.Context, category string) error
	ViewProductDetail(ctx context.Context, productID int64) (store.ProductDetail, error)

	AddToCart(ctx context.Context, productID int64, quantity int) error
	UpdateCartQuantity(ctx context.Context, productID int64, quantity int) error
	UpdateCartQuantityInput(ctx context.Context, productID int64, raw string) error
	RemoveFromCart(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error

	Checkout(ctx context.Context, customerName, customerEmail string) (entity.Order, error)
	LoadOrdersByEmail(ctx context.Context, email string) error
	OrderDetail(ctx context.Context, orderID int64) (entity.Order, error)

	RemoveRecentView(ctx context.Context, productID int64) error
	ClearRecentViews(ctx context.Context) error
	RecentViewCount(ctx context.Context) (int64, error)
}

type StorefrontHandler struct {
	store Storefront
}

// NewStorefrontHandler creates a new instance of StorefrontHandler
func NewStorefrontHandler(s Storefront) *StorefrontHandler {
	return &StorefrontHandler{store: s}
}

// Register mounts every storefront route on e.
func (h *StorefrontHandler) Register(e *echo.Echo) {
	e.GET("/state", h.GetState)
	e.PUT("/view", h.SetView)
	e.DELETE("/notice", h.DismissNotice)

	e.POST("/catalog/reload", h.ReloadCatalog)
	e.POST("/catalog/search", h.SearchCatalog)
	e.POST("/catalog/category", h.FilterCategory)
	e.GET("/products/:id", h.GetProduct)

	e.POST("/cart", h.AddToCart)
	e.PUT("/cart/:productId", h.UpdateCartQuantity)
	e.DELETE("/cart/:productId", h.RemoveFromCart)
	e.DELETE("/cart", h.ClearCart)

	e.POST("/checkout", h.Checkout)
	e.POST("/orders/lookup", h.LookupOrders)
	e.GET("/orders/:id", h.GetOrder)

	e.DELETE("/recent-views/:productId", h.RemoveRecentView)
	e.DELETE("/recent-views", h.ClearRecentViews)
	e.GET("/recent-views/count", h.RecentViewCount)
}

// StateResponse is the snapshot plus what a renderer needs to draw it.
type StateResponse struct {
	store.Snapshot
	Visible        string           `json:"visible"`
	CartTotalLabel string           `json:"cartTotalLabel"`
	PriceLabels    map[int64]string `json:"priceLabels"`
}

func (h *StorefrontHandler) state() StateResponse {
	snap := h.store.Snapshot()
	f := h.store.Formatter()

	labels := make(map[int64]string)
	for _, p := range snap.Catalog {
		labels[p.ID] = f.Label(p.Price)
	}
	for _, p := range snap.RecentViews {
		labels[p.ID] = f.Label(p.Price)
	}
	for _, line := range snap.Cart {
		if _, ok := labels[line.ProductID]; !ok {
			labels[line.ProductID] = f.Label(line.Price)
		}
	}

	return StateResponse{
		Snapshot:       snap,
		Visible:        snap.ActiveView.Slice().String(),
		CartTotalLabel: f.Label(snap.CartTotal),
		PriceLabels:    labels,
	}
}

// respond writes the current state, or maps err to a status.
func (h *StorefrontHandler) respond(c echo.Context, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.state())
}

func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrSuperseded):
		status = http.StatusConflict
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNetwork(err):
		status = http.StatusServiceUnavailable
	case apperr.IsDecode(err):
		status = http.StatusBadGateway
	default:
		if _, ok := apperr.ServiceStatus(err); ok {
			status = http.StatusBadGateway
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, map[string]string{"error": apperr.UserMessage(err)})
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, fmt.Sprintf("invalid %s %q", name, c.Param(name)))
	}
	return id, nil
}

func bindError() error {
	return apperr.Invalid("body", "Invalid request payload")
}

// GetState returns the current snapshot --> /state
func (h *StorefrontHandler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state())
}

// SetView switches the active view --> /view
func (h *StorefrontHandler) SetView(c echo.Context) error {
	req := struct {
		View string `json:"view"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	v, err := store.ParseView(req.View)
	if err != nil {
		return respondError(c, apperr.Invalid("view", err.Error()))
	}
	return h.respond(c, h.store.SetActiveView(v))
}

// DismissNotice clears the notice --> /notice
func (h *StorefrontHandler) DismissNotice(c echo.Context) error {
	h.store.DismissNotice()
	return c.NoContent(http.StatusNoContent)
}

// ReloadCatalog lists all products --> /catalog/reload
func (h *StorefrontHandler) ReloadCatalog(c echo.Context) error {
	return h.respond(c, h.store.LoadCatalog(c.Request().Context()))
}

// SearchCatalog searches products --> /catalog/search
func (h *StorefrontHandler) SearchCatalog(c echo.Context) error {
	req := struct {
		Keyword string `json:"keyword"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	return h.respond(c, h.store.SearchCatalog(c.Request().Context(), req.Keyword))
}

// FilterCategory lists one category --> /catalog/category
func (h *StorefrontHandler) FilterCategory(c echo.Context) error {
	req := struct {
		Category string `json:"category"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	return h.respond(c, h.store.FilterCategory(c.Request().Context(), req.Category))
}

// GetProduct opens a product's detail --> /products/:id
func (h *StorefrontHandler) GetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	detail, err := h.store.ViewProductDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// AddToCart adds a product --> /cart
func (h *StorefrontHandler) AddToCart(c echo.Context) error {
	req := struct {
		ProductID int64 `json:"productId"`
		Quantity  *int  `json:"quantity"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	return h.respond(c, h.store.AddToCart(c.Request().Context(), req.ProductID, quantity))
}

// UpdateCartQuantity sets a line's quantity --> /cart/:productId
// The quantity may be a JSON number or the raw text the shopper typed.
func (h *StorefrontHandler) UpdateCartQuantity(c echo.Context) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	req := struct {
		Quantity any `json:"quantity"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}

	ctx := c.Request().Context()
	switch q := req.Quantity.(type) {
	case float64:
		if q != math.Trunc(q) || q > math.MaxInt32 || q < math.MinInt32 {
			return h.respond(c, h.store.UpdateCartQuantityInput(ctx, id, strconv.FormatFloat(q, 'f', -1, 64)))
		}
		return h.respond(c, h.store.UpdateCartQuantity(ctx, id, int(q)))
	case string:
		return h.respond(c, h.store.UpdateCartQuantityInput(ctx, id, q))
	default:
		return h.respond(c, h.store.UpdateCartQuantityInput(ctx, id, ""))
	}
}

// RemoveFromCart removes a line --> /cart/:productId
func (h *StorefrontHandler) RemoveFromCart(c echo.Context) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	return h.respond(c, h.store.RemoveFromCart(c.Request().Context(), id))
}

// ClearCart empties the cart --> /cart
func (h *StorefrontHandler) ClearCart(c echo.Context) error {
	return h.respond(c, h.store.ClearCart(c.Request().Context()))
}

// Checkout places an order --> /checkout
func (h *StorefrontHandler) Checkout(c echo.Context) error {
	req := struct {
		CustomerName  string `json:"customerName"`
		CustomerEmail string `json:"customerEmail"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	order, err := h.store.Checkout(c.Request().Context(), req.CustomerName, req.CustomerEmail)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"order":      order,
		"totalLabel": h.store.Formatter().Label(order.TotalAmount),
		"state":      h.state(),
	})
}

// LookupOrders loads orders by email --> /orders/lookup
func (h *StorefrontHandler) LookupOrders(c echo.Context) error {
	req := struct {
		Email string `json:"email"`
	}{}
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError())
	}
	return h.respond(c, h.store.LoadOrdersByEmail(c.Request().Context(), req.Email))
}

// GetOrder fetches one order --> /orders/:id
func (h *StorefrontHandler) GetOrder(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	order, err := h.store.OrderDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// RemoveRecentView drops one recent view --> /recent-views/:productId
func (h *StorefrontHandler) RemoveRecentView(c echo.Context) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	return h.respond(c, h.store.RemoveRecentView(c.Request().Context(), id))
}

// ClearRecentViews empties recent views --> /recent-views
func (h *StorefrontHandler) ClearRecentViews(c echo.Context) error {
	return h.respond(c, h.store.ClearRecentViews(c.Request().Context()))
}

// RecentViewCount returns the service's recent view count --> /recent-views/count
func (h *StorefrontHandler) RecentViewCount(c echo.Context) error {
	n, err := h.store.RecentViewCount(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"count": n})
}
