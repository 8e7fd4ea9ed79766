// Package store is the shopper's application state: catalog, cart, orders
// and recently viewed products, plus the active view. Every shopper intent
// goes through a Store, which calls the shop service, replaces the slices
// the intent affects and keeps them consistent with each other.
package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/entity"
	"storefront/internal/money"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "store").Logger()

// Service is the shop API the store orchestrates. *client.Client satisfies it.
type Service interface {
	ListProducts(ctx context.Context) ([]entity.Product, error)
	SearchProducts(ctx context.Context, keyword string) ([]entity.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]entity.Product, error)
	GetProduct(ctx context.Context, productID int64, shopperID string) (entity.Product, error)

	GetCart(ctx context.Context, shopperID string) ([]entity.CartLine, error)
	AddCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error
	UpdateCartLine(ctx context.Context, shopperID string, productID int64, quantity int) error
	RemoveCartLine(ctx context.Context, shopperID string, productID int64) error
	ClearCart(ctx context.Context, shopperID string) error

	CreateOrder(ctx context.Context, shopperID, customerName, customerEmail string) (entity.Order, error)
	GetOrder(ctx context.Context, orderID int64) (entity.Order, error)
	GetOrdersByEmail(ctx context.Context, email string) ([]entity.Order, error)

	GetRecentViews(ctx context.Context, shopperID string) ([]entity.Product, error)
	CountRecentViews(ctx context.Context, shopperID string) (int64, error)
	RemoveRecentView(ctx context.Context, shopperID string, productID int64) error
	ClearRecentViews(ctx context.Context, shopperID string) error
}

// Session identifies the shopper the store acts for. Cart and recent-view
// calls are scoped to ShopperID; order lookups use the checkout email.
type Session struct {
	ShopperID string
}

// Journal receives one record per dispatched intent.
type Journal interface {
	Record(ctx context.Context, rec Record) error
}

// Record describes a dispatched intent and how it ended.
type Record struct {
	Intent    Intent    `json:"intent"`
	ShopperID string    `json:"shopperId"`
	Outcome   string    `json:"outcome"` // "ok", "rejected", "failed"
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// ErrNoSnapshot is returned by a SnapshotCache that holds nothing for a shopper.
var ErrNoSnapshot = errors.New("no snapshot cached")

// SnapshotCache keeps the last-known-good state outside the process.
type SnapshotCache interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, shopperID string) (Snapshot, error)
}

// NoticeKind classifies a user-visible message.
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is the latest message for the shopper.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Intent  Intent     `json:"intent"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

type state struct {
	catalog      []entity.Product
	catalogQuery CatalogQuery
	cart         entity.Cart
	orders       []entity.Order
	ordersEmail  string
	recentViews  []entity.Product
	activeView   View
	notice       *Notice
}

type Store struct {
	session Session
	svc     Service
	format  money.Formatter
	log     zerolog.Logger
	journal Journal
	cache   SnapshotCache
	now     func() time.Time

	mu     sync.RWMutex
	st     state
	issued [sliceCount]uint64
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithFormatter(f money.Formatter) Option {
	return func(s *Store) { s.format = f }
}

func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

func WithSnapshotCache(c SnapshotCache) Option {
	return func(s *Store) { s.cache = c }
}

// New creates a store in its initial state: empty slices, products view.
func New(session Session, svc Service, opts ...Option) *Store {
	s := &Store{
		session: session,
		svc:     svc,
		format:  money.NewFormatter("ko", money.DefaultSymbol),
		log:     logger,
		now:     time.Now,
		st: state{
			catalogQuery: CatalogQuery{Mode: catalogAll},
			cart:         entity.NewCart(nil),
			activeView:   ViewProducts,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("shopper", session.ShopperID).Logger()
	return s
}

func (s *Store) Session() Session {
	return s.session
}

func (s *Store) Formatter() money.Formatter {
	return s.format
}

// Snapshot is a read-only copy of the store's state.
type Snapshot struct {
	ShopperID    string            `json:"shopperId"`
	ActiveView   View              `json:"activeView"`
	Catalog      []entity.Product  `json:"catalog"`
	CatalogQuery CatalogQuery      `json:"catalogQuery"`
	Cart         []entity.CartLine `json:"cart"`
	CartTotal    money.Amount      `json:"cartTotal"`
	Orders       []entity.Order    `json:"orders"`
	OrdersEmail  string            `json:"ordersEmail,omitempty"`
	RecentViews  []entity.Product  `json:"recentViews"`
	Notice       *Notice           `json:"notice,omitempty"`
}

// Snapshot copies the current state. The cart total is recomputed.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ShopperID:    s.session.ShopperID,
		ActiveView:   s.st.activeView,
		Catalog:      append([]entity.Product{}, s.st.catalog...),
		CatalogQuery: s.st.catalogQuery,
		Cart:         s.st.cart.Lines(),
		CartTotal:    s.st.cart.Total(),
		Orders:       copyOrders(s.st.orders),
		OrdersEmail:  s.st.ordersEmail,
		RecentViews:  append([]entity.Product{}, s.st.recentViews...),
	}
	if s.st.notice != nil {
		n := *s.st.notice
		snap.Notice = &n
	}
	return snap
}

// CartTotal sums the cart on every call.
func (s *Store) CartTotal() money.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.cart.Total()
}

func (s *Store) ActiveView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.activeView
}

func copyOrders(orders []entity.Order) []entity.Order {
	out := make([]entity.Order, len(orders))
	for i, o := range orders {
		o.Items = append([]entity.OrderItem(nil), o.Items...)
		out[i] = o
	}
	return out
}

// Restore loads the cached snapshot for this shopper, if any, so the
// presentation layer has something to show before Bootstrap finishes.
func (s *Store) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Load(ctx, s.session.ShopperID)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot restore failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.catalog = snap.Catalog
	if snap.CatalogQuery.Mode != "" {
		s.st.catalogQuery = snap.CatalogQuery
	}
	s.st.cart = entity.NewCart(snap.Cart)
	s.st.orders = snap.Orders
	s.st.ordersEmail = snap.OrdersEmail
	s.st.recentViews = snap.RecentViews
	if snap.ActiveView.Valid() {
		s.st.activeView = snap.ActiveView
	}
	s.log.Info().Int("catalog", len(snap.Catalog)).Int("cart", len(snap.Cart)).Msg("restored cached snapshot")
	return nil
}

func (s *Store) setNotice(kind NoticeKind, intent Intent, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.notice = &Notice{Kind: kind, Intent: intent, Message: msg, At: s.now()}
}

// DismissNotice clears the current notice.
func (s *Store) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.notice = nil
}
