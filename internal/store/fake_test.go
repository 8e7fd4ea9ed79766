package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/entity"
	"storefront/internal/money"
)

// gate pauses a fake call until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

// fakeShop is an in-memory shop service. It keeps carts and recent views
// per shopper and orders per email, like the real service.
type fakeShop struct {
	mu       sync.Mutex
	products []entity.Product
	carts    map[string][]entity.CartLine
	orders   []entity.Order
	recent   map[string][]int64
	calls    []string
	fail     map[string]error
	gates    map[string]*gate
	nextID   int64
	lagOrder bool // GetOrdersByEmail omits the newest order
}

func newFakeShop(products ...entity.Product) *fakeShop {
	return &fakeShop{
		products: products,
		carts:    map[string][]entity.CartLine{},
		recent:   map[string][]int64{},
		fail:     map[string]error{},
		gates:    map[string]*gate{},
		nextID:   100,
	}
}

func widget() entity.Product {
	return entity.Product{ID: 1, Name: "Widget", Description: "A widget", Price: money.FromInt(1000), Stock: 2, Category: "tools"}
}

func gadget() entity.Product {
	return entity.Product{ID: 2, Name: "Gadget", Description: "A gadget", Price: money.Normalize("2500"), Stock: 5, Category: "toys"}
}

func (f *fakeShop) enter(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	g := f.gates[method]
	delete(f.gates, method)
	err := f.fail[method]
	f.mu.Unlock()

	if g != nil {
		close(g.started)
		<-g.release
	}
	return err
}

func (f *fakeShop) hold(method string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := newGate()
	f.gates[method] = g
	return g
}

func (f *fakeShop) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeShop) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeShop) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeShop) product(id int64) (entity.Product, bool) {
	for _, p := range f.products {
		if p.ID == id {
			return p, true
		}
	}
	return entity.Product{}, false
}

func notFound(op string) error {
	return &apperr.ServiceError{Op: op, Status: 400, Message: "Product not found"}
}

func (f *fakeShop) ListProducts(ctx context.Context) ([]entity.Product, error) {
	if err := f.enter("ListProducts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Product(nil), f.products...), nil
}

func (f *fakeShop) SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error) {
	if err := f.enter("SearchProducts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(keyword)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeShop) ListProductsByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	if err := f.enter("ListProductsByCategory"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeShop) GetProduct(ctx context.Context, productID int64, shopperID string) (entity.Product, error) {
	if err := f.enter("GetProduct"); err != nil {
		return entity.Product{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.product(productID)
	if !ok {
		return entity.Product{}, notFound("get product")
	}
	if shopperID != "" {
		ids := []int64{productID}
		for _, id := range f.recent[shopperID] {
			if id != productID {
				ids = append(ids, id)
			}
		}
		f.recent[shopperID] = ids
	}
	return p, nil
}

func (f *fakeShop) GetCart(ctx context.Context, shopperID string) ([]entity.CartLine, error) {
	if err := f.enter("GetCart"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.CartLine(nil), f.carts[shopperID]...), nil
}

func (f *fakeShop) AddCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error {
	if err := f.enter("AddCartLine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.product(productID)
	if !ok {
		return notFound("add cart line")
	}
	if p.Stock < quantity {
		return &apperr.ServiceError{Op: "add cart line", Status: 400, Message: "Insufficient stock"}
	}
	line := entity.CartLine{ProductID: p.ID, ProductName: p.Name, Price: p.Price, Quantity: quantity}
	f.setLine(shopperID, line)
	return nil
}

func (f *fakeShop) setLine(shopperID string, line entity.CartLine) {
	lines := f.carts[shopperID]
	for i := range lines {
		if lines[i].ProductID == line.ProductID {
			lines[i] = line
			return
		}
	}
	f.carts[shopperID] = append(lines, line)
}

func (f *fakeShop) UpdateCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error {
	if err := f.enter("UpdateCartLine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, line := range f.carts[shopperID] {
		if line.ProductID == productID {
			f.carts[shopperID][i].Quantity = quantity
			return nil
		}
	}
	return &apperr.ServiceError{Op: "update cart line", Status: 400, Message: "Cart item not found"}
}

func (f *fakeShop) RemoveCartLine(ctx context.Context, shopperID string, productID int64) error {
	if err := f.enter("RemoveCartLine"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []entity.CartLine
	for _, line := range f.carts[shopperID] {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	f.carts[shopperID] = kept
	return nil
}

func (f *fakeShop) ClearCart(ctx context.Context, shopperID string) error {
	if err := f.enter("ClearCart"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, shopperID)
	return nil
}

func (f *fakeShop) CreateOrder(ctx context.Context, shopperID, customerName, customerEmail string) (entity.Order, error) {
	if err := f.enter("CreateOrder"); err != nil {
		return entity.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := f.carts[shopperID]
	if len(lines) == 0 {
		return entity.Order{}, &apperr.ServiceError{Op: "create order", Status: 400, Message: "Cart is empty"}
	}
	f.nextID++
	order := entity.Order{
		ID:            f.nextID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Status:        "PENDING",
		CreatedAt:     entity.Timestamp{Time: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		TotalAmount:   entity.NewCart(lines).Total(),
	}
	for i, line := range lines {
		p, _ := f.product(line.ProductID)
		order.Items = append(order.Items, entity.OrderItem{ID: int64(i + 1), Product: p, Quantity: line.Quantity, Price: line.Price})
	}
	f.orders = append(f.orders, order)
	delete(f.carts, shopperID)
	return order, nil
}

func (f *fakeShop) GetOrder(ctx context.Context, orderID int64) (entity.Order, error) {
	if err := f.enter("GetOrder"); err != nil {
		return entity.Order{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			return o, nil
		}
	}
	return entity.Order{}, &apperr.ServiceError{Op: "get order", Status: 400, Message: fmt.Sprintf("Order not found: %d", orderID)}
}

func (f *fakeShop) GetOrdersByEmail(ctx context.Context, email string) ([]entity.Order, error) {
	if err := f.enter("GetOrdersByEmail"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Order
	for _, o := range f.orders {
		if o.CustomerEmail == email {
			out = append(out, o)
		}
	}
	if f.lagOrder && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeShop) GetRecentViews(ctx context.Context, shopperID string) ([]entity.Product, error) {
	if err := f.enter("GetRecentViews"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Product
	for _, id := range f.recent[shopperID] {
		if p, ok := f.product(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeShop) CountRecentViews(ctx context.Context, shopperID string) (int64, error) {
	if err := f.enter("CountRecentViews"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.recent[shopperID])), nil
}

func (f *fakeShop) RemoveRecentView(ctx context.Context, shopperID string, productID int64) error {
	if err := f.enter("RemoveRecentView"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []int64
	for _, id := range f.recent[shopperID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	f.recent[shopperID] = kept
	return nil
}

func (f *fakeShop) ClearRecentViews(ctx context.Context, shopperID string) error {
	if err := f.enter("ClearRecentViews"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.recent, shopperID)
	return nil
}

// memJournal and memCache record what the store hands them.
type memJournal struct {
	mu      sync.Mutex
	records []Record
}

func (j *memJournal) Record(ctx context.Context, rec Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

type memCache struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	saves int
}

func (c *memCache) Save(ctx context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snaps == nil {
		c.snaps = map[string]Snapshot{}
	}
	c.snaps[snap.ShopperID] = snap
	c.saves++
	return nil
}

func (c *memCache) Load(ctx context.Context, shopperID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[shopperID]
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}
