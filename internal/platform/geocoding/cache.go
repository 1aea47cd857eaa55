package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedGeocoder remembers successful lookups in Redis. Coordinates are rounded
// to four decimals (about 11 m) for the key.
type CachedGeocoder struct {
	next Geocoder
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedGeocoder(next Geocoder, rdb *redis.Client, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{next: next, rdb: rdb, ttl: ttl}
}

func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("geocode:%.4f:%.4f", lat, lon)
}

func (g *CachedGeocoder) ReverseCity(ctx context.Context, lat, lon float64) (string, error) {
	key := CacheKey(lat, lon)

	city, err := g.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return city, nil
	case !errors.Is(err, redis.Nil):
		// A broken cache must not block the lookup itself.
		slog.WarnContext(ctx, "geocode cache read failed", "key", key, "error", err)
	}

	city, err = g.next.ReverseCity(ctx, lat, lon)
	if err != nil {
		return "", err
	}

	if err := g.rdb.Set(ctx, key, city, g.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "geocode cache write failed", "key", key, "error", err)
	}
	return city, nil
}
