package openweather

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/couchcryptid/weather-warnings-service/internal/adapter/memcache"
	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/observability"
)

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Place names
// and their coordinates do not change, so entries never expire. Entries are
// scoped to the credential that fetched them, so a revoked key never rides on
// another key's results.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *memcache.LRU[[]domain.Place]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   memcache.NewLRU[[]domain.Place](maxEntries, nil),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, credential, query string, limit int) ([]domain.Place, error) {
	key := fmt.Sprintf("fwd:%s:%d:%s", credentialScope(credential), limit, strings.ToLower(strings.TrimSpace(query)))
	return c.lookup(ctx, "forward", key, func() ([]domain.Place, error) {
		return c.inner.Geocode(ctx, credential, query, limit)
	})
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, credential string, coords domain.Coordinates, limit int) ([]domain.Place, error) {
	key := fmt.Sprintf("rev:%s:%d:%.6f,%.6f", credentialScope(credential), limit, coords.Lat, coords.Lon)
	return c.lookup(ctx, "reverse", key, func() ([]domain.Place, error) {
		return c.inner.ReverseGeocode(ctx, credential, coords, limit)
	})
}

func (c *CachedGeocoder) lookup(_ context.Context, method, key string, fetch func() ([]domain.Place, error)) ([]domain.Place, error) {
	if places, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues(method, "hit").Inc()
		return slices.Clone(places), nil
	}
	c.metrics.GeocodeCache.WithLabelValues(method, "miss").Inc()

	places, err := fetch()
	if err != nil {
		return nil, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(places) > 0 {
		c.cache.Put(key, slices.Clone(places), 0)
	}
	return places, nil
}

// credentialScope is a short digest of the credential for use in cache keys.
func credentialScope(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
