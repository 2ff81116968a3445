package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "pantry:barcode:"

var _ Resolver = (*CachedResolver)(nil)

// CachedResolver stores resolved products in redis for ttl. Cache failures
// are logged and the lookup falls through to the wrapped resolver.
type CachedResolver struct {
	next   Resolver
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedResolver(next Resolver, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(slog.String("service", "barcode_cache")),
	}
}

func (r *CachedResolver) Resolve(ctx context.Context, barcode string) (Product, error) {
	key := cacheKeyPrefix + barcode

	cached, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Product
		if err := json.Unmarshal(cached, &p); err == nil {
			return p, nil
		}
		r.logger.WarnContext(ctx, "discarding corrupt cache entry", slog.String("barcode", barcode))
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "barcode cache read failed",
			slog.String("barcode", barcode),
			slog.Any("error", err),
		)
	}

	p, err := r.next.Resolve(ctx, barcode)
	if err != nil {
		return Product{}, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return Product{}, fmt.Errorf("marshal product: %w", err)
	}

	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "barcode cache write failed",
			slog.String("barcode", barcode),
			slog.Any("error", err),
		)
	}

	return p, nil
}

// Forget removes the cached entry for barcode and reports whether one existed.
func (r *CachedResolver) Forget(ctx context.Context, barcode string) (bool, error) {
	n, err := r.rdb.Del(ctx, cacheKeyPrefix+barcode).Result()
	if err != nil {
		return false, fmt.Errorf("delete cache entry: %w", err)
	}
	return n > 0, nil
}
