// Package consumer listens for stock and order events from the shop and
// resyncs the affected store slices.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"storefront/internal/entity"
	"storefront/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "consumer").Logger()

// Resyncer is the part of *store.Store the consumer drives.
type Resyncer interface {
	Snapshot() store.Snapshot
	Resync(ctx context.Context, slices ...store.Slice) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// StockEvent is the payload of stock.updated.<productId>.
type StockEvent struct {
	ProductID     int64  `json:"productId"`
	ProductName   string `json:"productName"`
	PreviousStock int    `json:"previousStock"`
	CurrentStock  int    `json:"currentStock"`
	Operation     string `json:"operation"`
}

type Consumer struct {
	store   Resyncer
	readers []messageReader
}

func NewConsumer(s Resyncer, readers ...*kafka.Reader) *Consumer {
	c := &Consumer{store: s}
	for _, r := range readers {
		c.readers = append(c.readers, r)
	}
	return c
}

// Start reads every topic until ctx is cancelled, then closes the readers.
func (c *Consumer) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range c.readers {
		wg.Add(1)
		go func(r messageReader) {
			defer wg.Done()
			c.consume(ctx, r)
		}(r)
	}
	wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, r messageReader) {
	defer func() {
		if err := r.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing reader")
		}
	}()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Msgf("Error reading message: %v", err)
			continue
		}
		c.processMessage(ctx, msg)
	}
}

// processMessage handles one event.
// key -> "stock.updated.productID" or "order.created.orderID"
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) {
	listKey := strings.Split(string(msg.Key), ".")
	if len(listKey) < 2 {
		logger.Warn().Msgf("Ignoring message with key %q", msg.Key)
		return
	}
	event := listKey[0] + "." + listKey[1]

	switch event {
	case "stock.updated":
		var stock StockEvent
		if err := json.Unmarshal(msg.Value, &stock); err != nil {
			logger.Error().Msgf("Error unmarshalling stock event: %v", err)
			return
		}
		c.onStock(ctx, stock)
	case "order.created", "order.updated", "order.cancelled":
		var order entity.Order
		if err := json.Unmarshal(msg.Value, &order); err != nil {
			logger.Error().Msgf("Error unmarshalling order event: %v", err)
			return
		}
		c.onOrder(ctx, order)
	default:
		logger.Debug().Msgf("Ignoring event %s", event)
	}
}

// onStock resyncs catalog and cart when the product is on screen or in the cart.
func (c *Consumer) onStock(ctx context.Context, ev StockEvent) {
	snap := c.store.Snapshot()

	var slices []store.Slice
	for _, p := range snap.Catalog {
		if p.ID == ev.ProductID {
			slices = append(slices, store.SliceCatalog)
			break
		}
	}
	for _, line := range snap.Cart {
		if line.ProductID == ev.ProductID {
			slices = append(slices, store.SliceCart)
			break
		}
	}
	if len(slices) == 0 {
		return
	}
	logger.Debug().Msgf("Stock for product %d changed %d -> %d", ev.ProductID, ev.PreviousStock, ev.CurrentStock)
	if err := c.store.Resync(ctx, slices...); err != nil {
		logger.Error().Err(err).Msgf("Error resyncing after stock update for product %d", ev.ProductID)
	}
}

// onOrder resyncs orders when the event belongs to the loaded email.
func (c *Consumer) onOrder(ctx context.Context, order entity.Order) {
	email := c.store.Snapshot().OrdersEmail
	if email == "" || !strings.EqualFold(email, order.CustomerEmail) {
		return
	}
	if err := c.store.Resync(ctx, store.SliceOrders); err != nil {
		logger.Error().Err(err).Msgf("Error resyncing orders after order %d", order.ID)
	}
}
