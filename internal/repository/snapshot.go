package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"storefront/internal/store"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "snapshot-cache").Logger()

// SnapshotRepository keeps the last-known-good store snapshot per shopper
// in Redis.
type SnapshotRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotRepository creates a repository. A zero ttl keeps snapshots
// until overwritten.
func NewSnapshotRepository(rdb *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb, ttl: ttl}
}

func snapshotKey(shopperID string) string {
	return fmt.Sprintf("storefront:snapshot:%s", shopperID)
}

// Save writes the snapshot. The notice is transient and is not kept.
func (r *SnapshotRepository) Save(ctx context.Context, snap store.Snapshot) error {
	snap.Notice = nil
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := snapshotKey(snap.ShopperID)
	if err := r.rdb.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error setting snapshot %s in cache", key)
		return err
	}
	return nil
}

// Load reads the snapshot for shopperID. A miss is store.ErrNoSnapshot.
func (r *SnapshotRepository) Load(ctx context.Context, shopperID string) (store.Snapshot, error) {
	key := snapshotKey(shopperID)
	cached, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Debug().Msgf("Snapshot %s not found in cache", key)
			return store.Snapshot{}, store.ErrNoSnapshot
		}
		logger.Error().Err(err).Msgf("Error getting snapshot %s from cache", key)
		return store.Snapshot{}, err
	}

	var snap store.Snapshot
	if err := json.Unmarshal([]byte(cached), &snap); err != nil {
		logger.Error().Err(err).Msgf("Error unmarshalling snapshot %s", key)
		return store.Snapshot{}, err
	}
	return snap, nil
}

// Ping checks the Redis connection.
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
