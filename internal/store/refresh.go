package store

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/entity"
)

// Slice is one of the four state categories the store owns.
type Slice int

const (
	SliceCatalog Slice = iota
	SliceCart
	SliceOrders
	SliceRecentViews

	sliceCount
)

func (s Slice) String() string {
	switch s {
	case SliceCatalog:
		return "catalog"
	case SliceCart:
		return "cart"
	case SliceOrders:
		return "orders"
	case SliceRecentViews:
		return "recentViews"
	}
	return fmt.Sprintf("Slice(%d)", int(s))
}

// ParseSlice is the inverse of Slice.String.
func ParseSlice(name string) (Slice, error) {
	for s := SliceCatalog; s < sliceCount; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown slice %q", name)
}

// Intent names a shopper action dispatched into the store.
type Intent string

const (
	IntentBootstrap          Intent = "bootstrap"
	IntentLoadCatalog        Intent = "loadCatalog"
	IntentSearchCatalog      Intent = "searchCatalog"
	IntentFilterCategory     Intent = "filterCategory"
	IntentViewProduct        Intent = "viewProductDetail"
	IntentAddToCart          Intent = "addToCart"
	IntentUpdateCartQuantity Intent = "updateCartQuantity"
	IntentRemoveFromCart     Intent = "removeFromCart"
	IntentClearCart          Intent = "clearCart"
	IntentCheckout           Intent = "checkout"
	IntentLoadOrders         Intent = "loadOrdersByEmail"
	IntentOrderDetail        Intent = "orderDetail"
	IntentRemoveRecentView   Intent = "removeRecentView"
	IntentClearRecentViews   Intent = "clearRecentViews"
	IntentRecentViewCount    Intent = "recentViewCount"
	IntentSetView            Intent = "setActiveView"
	IntentResync             Intent = "resync"
)

// affects lists the slices refetched after an intent's remote call
// succeeds, in refresh order. Intents that fetch a slice directly
// (loadCatalog, searchCatalog, loadOrdersByEmail) replace it and refetch
// nothing else.
var affects = map[Intent][]Slice{
	IntentViewProduct:        {SliceRecentViews},
	IntentAddToCart:          {SliceCart},
	IntentUpdateCartQuantity: {SliceCart},
	IntentRemoveFromCart:     {SliceCart},
	IntentClearCart:          {SliceCart},
	IntentCheckout:           {SliceCart, SliceOrders},
	IntentRemoveRecentView:   {SliceRecentViews},
	IntentClearRecentViews:   {SliceRecentViews},
}

// navigates lists the view an intent switches to when it succeeds.
var navigates = map[Intent]View{
	IntentCheckout: ViewOrders,
}

// Affects returns the slices refreshed after intent succeeds.
func Affects(intent Intent) []Slice {
	return append([]Slice(nil), affects[intent]...)
}

// ErrSuperseded is returned when a response arrived after a newer request
// for the same slice had been issued and was therefore discarded.
var ErrSuperseded = errors.New("response superseded by a newer request")

// catalogMode tells Resync which query produced the catalog.
type catalogMode string

const (
	catalogAll      catalogMode = "all"
	catalogSearch   catalogMode = "search"
	catalogCategory catalogMode = "category"
)

// CatalogQuery is the query whose results the catalog currently holds.
type CatalogQuery struct {
	Mode catalogMode `json:"mode"`
	Term string      `json:"term,omitempty"`
}

// begin issues the next sequence number for a slice.
func (s *Store) begin(slice Slice) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[slice]++
	return s.issued[slice]
}

// commit applies fn only if seq is still the latest number issued for the
// slice.
func (s *Store) commit(slice Slice, seq uint64, fn func(st *state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued[slice] {
		s.log.Debug().Str("slice", slice.String()).Uint64("seq", seq).Uint64("latest", s.issued[slice]).Msg("discarding stale response")
		return ErrSuperseded
	}
	fn(&s.st)
	return nil
}

func (s *Store) fetchCatalog(ctx context.Context, q CatalogQuery) error {
	seq := s.begin(SliceCatalog)

	var (
		products []entity.Product
		err      error
	)
	switch q.Mode {
	case catalogSearch:
		products, err = s.svc.SearchProducts(ctx, q.Term)
	case catalogCategory:
		products, err = s.svc.ListProductsByCategory(ctx, q.Term)
	default:
		q = CatalogQuery{Mode: catalogAll}
		products, err = s.svc.ListProducts(ctx)
	}
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}

	return s.commit(SliceCatalog, seq, func(st *state) {
		st.catalog = products
		st.catalogQuery = q
	})
}

func (s *Store) refreshCart(ctx context.Context) error {
	seq := s.begin(SliceCart)
	lines, err := s.svc.GetCart(ctx, s.session.ShopperID)
	if err != nil {
		return fmt.Errorf("refresh cart: %w", err)
	}
	return s.commit(SliceCart, seq, func(st *state) {
		st.cart = entity.NewCart(lines)
	})
}

func (s *Store) refreshRecentViews(ctx context.Context) error {
	seq := s.begin(SliceRecentViews)
	products, err := s.svc.GetRecentViews(ctx, s.session.ShopperID)
	if err != nil {
		return fmt.Errorf("refresh recent views: %w", err)
	}
	return s.commit(SliceRecentViews, seq, func(st *state) {
		st.recentViews = products
	})
}

func (s *Store) fetchOrders(ctx context.Context, email string) error {
	seq := s.begin(SliceOrders)
	orders, err := s.svc.GetOrdersByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}
	return s.commit(SliceOrders, seq, func(st *state) {
		st.orders = orders
		st.ordersEmail = email
	})
}

// refresh refetches one slice using the query that last filled it.
func (s *Store) refresh(ctx context.Context, slice Slice) error {
	switch slice {
	case SliceCatalog:
		s.mu.RLock()
		q := s.st.catalogQuery
		s.mu.RUnlock()
		return s.fetchCatalog(ctx, q)
	case SliceCart:
		return s.refreshCart(ctx)
	case SliceRecentViews:
		return s.refreshRecentViews(ctx)
	case SliceOrders:
		s.mu.RLock()
		email := s.st.ordersEmail
		s.mu.RUnlock()
		if email == "" {
			return nil
		}
		return s.fetchOrders(ctx, email)
	}
	return fmt.Errorf("unknown slice %d", int(slice))
}

// refreshAll refetches slices concurrently and joins their failures.
// Superseded responses are not failures.
func (s *Store) refreshAll(ctx context.Context, slices []Slice) error {
	errCh := make(chan error, len(slices))
	for _, slice := range slices {
		go func(slice Slice) {
			errCh <- s.refresh(ctx, slice)
		}(slice)
	}

	var errs []error
	for range slices {
		if err := <-errCh; err != nil && !errors.Is(err, ErrSuperseded) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// resync runs the declared refreshes of an intent in table order. A
// non-empty ordersEmail is used for the orders slice. Failures are logged
// and surfaced as the notice; the slice keeps its last value.
func (s *Store) resync(ctx context.Context, intent Intent, ordersEmail string) error {
	var errs []error
	for _, slice := range affects[intent] {
		var err error
		if slice == SliceOrders && ordersEmail != "" {
			err = s.fetchOrders(ctx, ordersEmail)
		} else {
			err = s.refresh(ctx, slice)
		}
		if err != nil && !errors.Is(err, ErrSuperseded) {
			s.log.Error().Err(err).Str("intent", string(intent)).Str("slice", slice.String()).Msg("refresh after intent failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
