package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/entity"
	"storefront/internal/money"
)

// ProductDetail is what the shopper sees after opening a product. It is
// returned to the caller and never stored.
type ProductDetail struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       money.Amount `json:"price"`
	PriceLabel  string       `json:"priceLabel"`
	Stock       int          `json:"stock"`
	Category    string       `json:"category"`
}

// dispatch runs one intent and settles its outcome: notice, log, journal
// record and snapshot save.
func (s *Store) dispatch(ctx context.Context, intent Intent, fn func() error) error {
	err := fn()

	outcome := "ok"
	switch {
	case err == nil, errors.Is(err, ErrSuperseded):
	case apperr.IsValidation(err):
		outcome = "rejected"
		s.log.Warn().Err(err).Str("intent", string(intent)).Msg("intent rejected")
		s.setNotice(NoticeError, intent, apperr.UserMessage(err))
	default:
		outcome = "failed"
		s.log.Error().Err(err).Str("intent", string(intent)).Msg("intent failed")
		s.setNotice(NoticeError, intent, apperr.UserMessage(err))
	}

	s.record(ctx, intent, outcome, err)
	s.persist(ctx)
	return err
}

func (s *Store) record(ctx context.Context, intent Intent, outcome string, err error) {
	if s.journal == nil {
		return
	}
	rec := Record{Intent: intent, ShopperID: s.session.ShopperID, Outcome: outcome, At: s.now()}
	if err != nil {
		rec.Error = err.Error()
	}
	if jerr := s.journal.Record(ctx, rec); jerr != nil {
		s.log.Warn().Err(jerr).Str("intent", string(intent)).Msg("journal write failed")
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, s.Snapshot()); err != nil {
		s.log.Warn().Err(err).Msg("snapshot save failed")
	}
}

// afterSuccess switches view if the intent navigates, then runs its
// declared refreshes. Refresh failures become the notice but do not fail
// the intent: the remote mutation already happened.
func (s *Store) afterSuccess(ctx context.Context, intent Intent) {
	s.afterSuccessFor(ctx, intent, "")
}

// afterSuccessFor is afterSuccess with the orders refresh pinned to
// ordersEmail instead of whatever email the orders slice holds by then.
func (s *Store) afterSuccessFor(ctx context.Context, intent Intent, ordersEmail string) {
	if v, ok := navigates[intent]; ok {
		s.mu.Lock()
		s.st.activeView = v
		s.mu.Unlock()
	}
	if err := s.resync(ctx, intent, ordersEmail); err != nil {
		s.setNotice(NoticeError, intent, apperr.UserMessage(err))
	}
}

// Bootstrap fills catalog, cart and recent views (and orders when an email
// was restored). Slices load independently.
func (s *Store) Bootstrap(ctx context.Context) error {
	return s.dispatch(ctx, IntentBootstrap, func() error {
		slices := []Slice{SliceCatalog, SliceCart, SliceRecentViews}
		s.mu.RLock()
		if s.st.ordersEmail != "" {
			slices = append(slices, SliceOrders)
		}
		s.mu.RUnlock()
		return s.refreshAll(ctx, slices)
	})
}

// Resync refetches the given slices with the queries that last filled them.
func (s *Store) Resync(ctx context.Context, slices ...Slice) error {
	if len(slices) == 0 {
		return nil
	}
	return s.dispatch(ctx, IntentResync, func() error {
		return s.refreshAll(ctx, slices)
	})
}

// LoadCatalog replaces the catalog with the full product listing. It also
// resets a previous search.
func (s *Store) LoadCatalog(ctx context.Context) error {
	return s.dispatch(ctx, IntentLoadCatalog, func() error {
		return s.fetchCatalog(ctx, CatalogQuery{Mode: catalogAll})
	})
}

// SearchCatalog replaces the catalog with search results. A blank keyword
// does nothing.
func (s *Store) SearchCatalog(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	return s.dispatch(ctx, IntentSearchCatalog, func() error {
		return s.fetchCatalog(ctx, CatalogQuery{Mode: catalogSearch, Term: keyword})
	})
}

// FilterCategory replaces the catalog with one category. A blank category
// does nothing.
func (s *Store) FilterCategory(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil
	}
	return s.dispatch(ctx, IntentFilterCategory, func() error {
		return s.fetchCatalog(ctx, CatalogQuery{Mode: catalogCategory, Term: category})
	})
}

// ViewProductDetail fetches a product, which makes the service record a
// recent view, and then refreshes recent views. A failed fetch refreshes
// nothing since no view was recorded.
func (s *Store) ViewProductDetail(ctx context.Context, productID int64) (ProductDetail, error) {
	var detail ProductDetail
	err := s.dispatch(ctx, IntentViewProduct, func() error {
		product, err := s.svc.GetProduct(ctx, productID, s.session.ShopperID)
		if err != nil {
			return err
		}
		detail = ProductDetail{
			ID:          product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			PriceLabel:  s.format.Label(product.Price),
			Stock:       product.Stock,
			Category:    product.Category,
		}
		s.afterSuccess(ctx, IntentViewProduct)
		return nil
	})
	return detail, err
}

func (s *Store) AddToCart(ctx context.Context, productID int64, quantity int) error {
	return s.dispatch(ctx, IntentAddToCart, func() error {
		if quantity < 1 {
			return apperr.Invalid("quantity", "quantity must be at least 1")
		}
		if err := s.svc.AddCartLine(ctx, s.session.ShopperID, productID, quantity); err != nil {
			return err
		}
		s.setNotice(NoticeInfo, IntentAddToCart, "added to cart")
		s.afterSuccess(ctx, IntentAddToCart)
		return nil
	})
}

// UpdateCartQuantity sets a line's quantity. Quantities below 1 are
// rejected here and never sent; RemoveFromCart is the way to drop a line.
func (s *Store) UpdateCartQuantity(ctx context.Context, productID int64, quantity int) error {
	return s.dispatch(ctx, IntentUpdateCartQuantity, func() error {
		if quantity < 1 {
			return apperr.Invalid("quantity", "quantity must be at least 1; remove the item instead")
		}
		if err := s.svc.UpdateCartLine(ctx, s.session.ShopperID, productID, quantity); err != nil {
			return err
		}
		s.afterSuccess(ctx, IntentUpdateCartQuantity)
		return nil
	})
}

// UpdateCartQuantityInput parses a quantity typed by the shopper.
func (s *Store) UpdateCartQuantityInput(ctx context.Context, productID int64, raw string) error {
	quantity, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return s.dispatch(ctx, IntentUpdateCartQuantity, func() error {
			return apperr.Invalid("quantity", "quantity must be a whole number")
		})
	}
	return s.UpdateCartQuantity(ctx, productID, quantity)
}

func (s *Store) RemoveFromCart(ctx context.Context, productID int64) error {
	return s.dispatch(ctx, IntentRemoveFromCart, func() error {
		if err := s.svc.RemoveCartLine(ctx, s.session.ShopperID, productID); err != nil {
			return err
		}
		s.afterSuccess(ctx, IntentRemoveFromCart)
		return nil
	})
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.dispatch(ctx, IntentClearCart, func() error {
		if err := s.svc.ClearCart(ctx, s.session.ShopperID); err != nil {
			return err
		}
		s.afterSuccess(ctx, IntentClearCart)
		return nil
	})
}

// Checkout places an order for the cart. Name and email are checked before
// anything is sent. On success the cart is refreshed, the view switches to
// orders and the orders for email are loaded; the created order is kept in
// the list even if that load fails or lags.
func (s *Store) Checkout(ctx context.Context, customerName, customerEmail string) (entity.Order, error) {
	customerName = strings.TrimSpace(customerName)
	customerEmail = strings.TrimSpace(customerEmail)

	var order entity.Order
	err := s.dispatch(ctx, IntentCheckout, func() error {
		if customerName == "" || customerEmail == "" {
			return apperr.Invalid("customer", "enter your name and email")
		}
		created, err := s.svc.CreateOrder(ctx, s.session.ShopperID, customerName, customerEmail)
		if err != nil {
			return err
		}
		order = created

		s.keepOrder(created, customerEmail)
		s.setNotice(NoticeInfo, IntentCheckout, "order placed")
		s.afterSuccessFor(ctx, IntentCheckout, customerEmail)
		s.keepOrder(created, customerEmail)
		return nil
	})
	return order, err
}

// keepOrder makes sure the orders slice shows orders for email and contains
// order. It goes through the sequence fence so an older lookup still in
// flight cannot overwrite it.
func (s *Store) keepOrder(order entity.Order, email string) {
	seq := s.begin(SliceOrders)
	_ = s.commit(SliceOrders, seq, func(st *state) {
		if st.ordersEmail != email {
			st.orders = nil
			st.ordersEmail = email
		}
		for _, o := range st.orders {
			if o.ID == order.ID {
				return
			}
		}
		st.orders = append([]entity.Order{order}, st.orders...)
	})
}

// LoadOrdersByEmail replaces the orders with those placed under email.
func (s *Store) LoadOrdersByEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	return s.dispatch(ctx, IntentLoadOrders, func() error {
		if email == "" {
			return apperr.Invalid("email", "enter an email to look up orders")
		}
		return s.fetchOrders(ctx, email)
	})
}

// OrderDetail fetches one order without storing it.
func (s *Store) OrderDetail(ctx context.Context, orderID int64) (entity.Order, error) {
	var order entity.Order
	err := s.dispatch(ctx, IntentOrderDetail, func() error {
		var err error
		order, err = s.svc.GetOrder(ctx, orderID)
		return err
	})
	return order, err
}

// RemoveRecentView drops one product from recent views. Removal is
// idempotent, so the local list is trimmed right after the service
// acknowledges and then refetched.
func (s *Store) RemoveRecentView(ctx context.Context, productID int64) error {
	return s.dispatch(ctx, IntentRemoveRecentView, func() error {
		if err := s.svc.RemoveRecentView(ctx, s.session.ShopperID, productID); err != nil {
			return err
		}
		seq := s.begin(SliceRecentViews)
		_ = s.commit(SliceRecentViews, seq, func(st *state) {
			kept := st.recentViews[:0:0]
			for _, p := range st.recentViews {
				if p.ID != productID {
					kept = append(kept, p)
				}
			}
			st.recentViews = kept
		})
		s.afterSuccess(ctx, IntentRemoveRecentView)
		return nil
	})
}

// ClearRecentViews empties recent views. Clearing an empty list is fine.
func (s *Store) ClearRecentViews(ctx context.Context) error {
	return s.dispatch(ctx, IntentClearRecentViews, func() error {
		if err := s.svc.ClearRecentViews(ctx, s.session.ShopperID); err != nil {
			return err
		}
		seq := s.begin(SliceRecentViews)
		_ = s.commit(SliceRecentViews, seq, func(st *state) {
			st.recentViews = nil
		})
		s.afterSuccess(ctx, IntentClearRecentViews)
		return nil
	})
}

// RecentViewCount asks the service how many recent views it holds.
func (s *Store) RecentViewCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.dispatch(ctx, IntentRecentViewCount, func() error {
		var err error
		n, err = s.svc.CountRecentViews(ctx, s.session.ShopperID)
		return err
	})
	return n, err
}

// SetActiveView switches the visible slice. It never calls the service.
func (s *Store) SetActiveView(v View) error {
	if !v.Valid() {
		return apperr.Invalid("view", "unknown view "+v.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.activeView = v
	return nil
}
