package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/entity"
	"storefront/internal/money"
	"storefront/internal/store"
)

// fakeStorefront records intents and fails with err when set.
type fakeStorefront struct {
	snap  store.Snapshot
	err   error
	calls []string
}

func (f *fakeStorefront) call(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeStorefront) Snapshot() store.Snapshot { return f.snap }

func (f *fakeStorefront) Formatter() money.Formatter {
	return money.NewFormatter("ko", money.DefaultSymbol)
}

func (f *fakeStorefront) SetActiveView(v store.View) error {
	if err := f.call("SetActiveView(%s)", v); err != nil {
		return err
	}
	f.snap.ActiveView = v
	return nil
}

func (f *fakeStorefront) DismissNotice() { _ = f.call("DismissNotice") }

func (f *fakeStorefront) LoadCatalog(ctx context.Context) error { return f.call("LoadCatalog") }

func (f *fakeStorefront) SearchCatalog(ctx context.Context, keyword string) error {
	return f.call("SearchCatalog(%s)", keyword)
}

func (f *fakeStorefront) FilterCategory(ctx context.Context, category string) error {
	return f.call("FilterCategory(%s)", category)
}

func (f *fakeStorefront) ViewProductDetail(ctx context.Context, productID int64) (store.ProductDetail, error) {
	if err := f.call("ViewProductDetail(%d)", productID); err != nil {
		return store.ProductDetail{}, err
	}
	return store.ProductDetail{ID: productID, Name: "Widget", Price: money.FromInt(1000), PriceLabel: "₩1,000", Stock: 2}, nil
}

func (f *fakeStorefront) AddToCart(ctx context.Context, productID int64, quantity int) error {
	return f.call("AddToCart(%d,%d)", productID, quantity)
}

func (f *fakeStorefront) UpdateCartQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		_ = f.call("UpdateCartQuantity(%d,%d)", productID, quantity)
		return apperr.Invalid("quantity", "quantity must be at least 1; remove the item instead")
	}
	return f.call("UpdateCartQuantity(%d,%d)", productID, quantity)
}

func (f *fakeStorefront) UpdateCartQuantityInput(ctx context.Context, productID int64, raw string) error {
	_ = f.call("UpdateCartQuantityInput(%d,%s)", productID, raw)
	return apperr.Invalid("quantity", "quantity must be a whole number")
}

func (f *fakeStorefront) RemoveFromCart(ctx context.Context, productID int64) error {
	return f.call("RemoveFromCart(%d)", productID)
}

func (f *fakeStorefront) ClearCart(ctx context.Context) error { return f.call("ClearCart") }

func (f *fakeStorefront) Checkout(ctx context.Context, customerName, customerEmail string) (entity.Order, error) {
	if err := f.call("Checkout(%s,%s)", customerName, customerEmail); err != nil {
		return entity.Order{}, err
	}
	return entity.Order{ID: 101, CustomerName: customerName, CustomerEmail: customerEmail, TotalAmount: money.FromInt(3000), Status: "PENDING"}, nil
}

func (f *fakeStorefront) LoadOrdersByEmail(ctx context.Context, email string) error {
	return f.call("LoadOrdersByEmail(%s)", email)
}

func (f *fakeStorefront) OrderDetail(ctx context.Context, orderID int64) (entity.Order, error) {
	if err := f.call("OrderDetail(%d)", orderID); err != nil {
		return entity.Order{}, err
	}
	return entity.Order{ID: orderID, Status: "PENDING"}, nil
}

func (f *fakeStorefront) RemoveRecentView(ctx context.Context, productID int64) error {
	return f.call("RemoveRecentView(%d)", productID)
}

func (f *fakeStorefront) ClearRecentViews(ctx context.Context) error { return f.call("ClearRecentViews") }

func (f *fakeStorefront) RecentViewCount(ctx context.Context) (int64, error) {
	if err := f.call("RecentViewCount"); err != nil {
		return 0, err
	}
	return 4, nil
}

func newServer(f *fakeStorefront) *echo.Echo {
	e := echo.New()
	NewStorefrontHandler(f).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_DispatchIntents(t *testing.T) {
	cases := []struct {
		method, path, body string
		status             int
		call               string
	}{
		{http.MethodPost, "/catalog/reload", "", http.StatusOK, "LoadCatalog"},
		{http.MethodPost, "/catalog/search", `{"keyword":"wid"}`, http.StatusOK, "SearchCatalog(wid)"},
		{http.MethodPost, "/catalog/category", `{"category":"toys"}`, http.StatusOK, "FilterCategory(toys)"},
		{http.MethodGet, "/products/1", "", http.StatusOK, "ViewProductDetail(1)"},
		{http.MethodPost, "/cart", `{"productId":1}`, http.StatusOK, "AddToCart(1,1)"},
		{http.MethodPost, "/cart", `{"productId":2,"quantity":3}`, http.StatusOK, "AddToCart(2,3)"},
		{http.MethodPut, "/cart/1", `{"quantity":3}`, http.StatusOK, "UpdateCartQuantity(1,3)"},
		{http.MethodDelete, "/cart/1", "", http.StatusOK, "RemoveFromCart(1)"},
		{http.MethodDelete, "/cart", "", http.StatusOK, "ClearCart"},
		{http.MethodPost, "/checkout", `{"customerName":"Kim","customerEmail":"kim@example.com"}`, http.StatusCreated, "Checkout(Kim,kim@example.com)"},
		{http.MethodPost, "/orders/lookup", `{"email":"kim@example.com"}`, http.StatusOK, "LoadOrdersByEmail(kim@example.com)"},
		{http.MethodGet, "/orders/101", "", http.StatusOK, "OrderDetail(101)"},
		{http.MethodDelete, "/recent-views/2", "", http.StatusOK, "RemoveRecentView(2)"},
		{http.MethodDelete, "/recent-views", "", http.StatusOK, "ClearRecentViews"},
		{http.MethodGet, "/recent-views/count", "", http.StatusOK, "RecentViewCount"},
		{http.MethodPut, "/view", `{"view":"recent"}`, http.StatusOK, "SetActiveView(recent)"},
		{http.MethodDelete, "/notice", "", http.StatusNoContent, "DismissNotice"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			f := &fakeStorefront{}
			rec := do(t, newServer(f), tc.method, tc.path, tc.body)

			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, []string{tc.call}, f.calls)
		})
	}
}

func TestGetState(t *testing.T) {
	f := &fakeStorefront{snap: store.Snapshot{
		ShopperID:  "user123",
		ActiveView: store.ViewCart,
		Catalog:    []entity.Product{{ID: 1, Name: "Widget", Price: money.FromInt(1000)}},
		Cart: []entity.CartLine{
			{ProductID: 1, ProductName: "Widget", Price: money.FromInt(1000), Quantity: 3},
			{ProductID: 5, ProductName: "Lamp", Price: money.FromInt(1234567), Quantity: 1},
		},
		CartTotal: money.FromInt(1237567),
	}}
	rec := do(t, newServer(f), http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cart", body["activeView"])
	assert.Equal(t, "cart", body["visible"])
	assert.Equal(t, "₩1,237,567", body["cartTotalLabel"])
	assert.Equal(t, float64(1237567), body["cartTotal"])
	labels := body["priceLabels"].(map[string]any)
	assert.Equal(t, "₩1,000", labels["1"])
	assert.Equal(t, "₩1,234,567", labels["5"])
	assert.Empty(t, f.calls, "reading state dispatches nothing")
}

func TestUpdateCartQuantity_InputForms(t *testing.T) {
	cases := []struct {
		body string
		call string
	}{
		{`{"quantity":0}`, "UpdateCartQuantity(1,0)"},
		{`{"quantity":"abc"}`, "UpdateCartQuantityInput(1,abc)"},
		{`{"quantity":2.5}`, "UpdateCartQuantityInput(1,2.5)"},
		{`{}`, "UpdateCartQuantityInput(1,)"},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			f := &fakeStorefront{}
			rec := do(t, newServer(f), http.MethodPut, "/cart/1", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{tc.call}, f.calls)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Invalid("customer", "enter your name and email"), http.StatusBadRequest, "enter your name and email"},
		{"service", &apperr.ServiceError{Op: "create order", Status: 400, Message: "Cart is empty"}, http.StatusBadGateway, "Cart is empty"},
		{"network", &apperr.NetworkError{Op: "list products", Err: errors.New("refused")}, http.StatusServiceUnavailable, "the shop is unreachable, try again shortly"},
		{"decode", &apperr.DecodeError{Op: "get cart", Err: errors.New("bad json")}, http.StatusBadGateway, "the shop sent an unexpected response"},
		{"superseded", store.ErrSuperseded, http.StatusConflict, store.ErrSuperseded.Error()},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeStorefront{err: tc.err}
			rec := do(t, newServer(f), http.MethodPost, "/checkout", `{"customerName":"Kim","customerEmail":"kim@example.com"}`)

			assert.Equal(t, tc.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.message, body["error"])
		})
	}
}

func TestBadInput(t *testing.T) {
	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/products/abc", ""},
		{http.MethodGet, "/orders/0", ""},
		{http.MethodDelete, "/recent-views/-1", ""},
		{http.MethodPut, "/view", `{"view":"checkout"}`},
		{http.MethodPost, "/cart", `{"productId":`},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			f := &fakeStorefront{}
			rec := do(t, newServer(f), tc.method, tc.path, tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, f.calls)
		})
	}
}

func TestCheckout_ReturnsOrderAndState(t *testing.T) {
	f := &fakeStorefront{}
	rec := do(t, newServer(f), http.MethodPost, "/checkout", `{"customerName":"Kim","customerEmail":"kim@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Order      entity.Order  `json:"order"`
		TotalLabel string        `json:"totalLabel"`
		State      StateResponse `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(101), body.Order.ID)
	assert.Equal(t, "₩3,000", body.TotalLabel)
}

func TestRecentViewCount(t *testing.T) {
	rec := do(t, newServer(&fakeStorefront{}), http.MethodGet, "/recent-views/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":4}`, rec.Body.String())
}
