// Package cache stores normalized alert sets for a bounded lifetime. It is an
// optimization only: every backend failure degrades to a miss or a dropped write.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
)

// keyPrefix namespaces result entries in shared backends.
const keyPrefix = "unwetterwarnung:"

// Store is a byte-oriented key/value backend with per-entry expiry.
type Store interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives the cache key for a location and credential pair. The credential
// is hashed so it never appears in a backend's keyspace.
func Key(location, credential string) string {
	sum := sha256.Sum256([]byte(location + "\x00" + credential))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Gateway encodes alert sets as JSON on top of a Store.
type Gateway struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGateway creates a gateway over store.
func NewGateway(store Store, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		store:   store,
		logger:  logger.With("component", "cache"),
		metrics: metrics,
	}
}

// Get returns the cached alerts for key. lifetimeSeconds <= 0 disables the
// cache and always misses. Backend errors and undecodable payloads are misses.
func (g *Gateway) Get(ctx context.Context, key string, lifetimeSeconds int) ([]domain.Alert, bool) {
	if lifetimeSeconds <= 0 {
		g.metrics.CacheLookups.WithLabelValues("bypass").Inc()
		return nil, false
	}

	payload, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.metrics.CacheErrors.WithLabelValues("get").Inc()
		g.metrics.CacheLookups.WithLabelValues("miss").Inc()
		g.logger.Warn("cache read failed",
			"op", "cache_get", "kind", domain.KindCache.String(), "error", err)
		return nil, false
	}
	if !ok {
		g.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var alerts []domain.Alert
	if err := json.Unmarshal(payload, &alerts); err != nil || alerts == nil {
		g.metrics.CacheLookups.WithLabelValues("miss").Inc()
		g.logger.Debug("discarding undecodable cache entry", "error", err)
		return nil, false
	}

	g.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return alerts, true
}

// Put stores alerts under key for lifetimeSeconds. lifetimeSeconds <= 0 is a no-op.
func (g *Gateway) Put(ctx context.Context, key string, alerts []domain.Alert, lifetimeSeconds int) {
	if lifetimeSeconds <= 0 {
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}

	payload, err := json.Marshal(alerts)
	if err != nil {
		g.metrics.CacheErrors.WithLabelValues("set").Inc()
		g.logger.Warn("cache encode failed",
			"op", "cache_put", "kind", domain.KindCache.String(), "error", err)
		return
	}
	if err := g.store.Set(ctx, key, payload, time.Duration(lifetimeSeconds)*time.Second); err != nil {
		g.metrics.CacheErrors.WithLabelValues("set").Inc()
		g.logger.Warn("cache write failed",
			"op", "cache_put", "kind", domain.KindCache.String(), "error", err)
	}
}
