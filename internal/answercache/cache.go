// Package answercache memoizes composed answers keyed by normalized query
// and as-of date, so repeated questions skip retrieval and the language
// model call.
package answercache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a cache backend. Get reports a miss for unknown or expired keys;
// expired entries are invalidated lazily, no background sweep required.
type Store interface {
	Get(ctx context.Context, key string) (payload []byte, createdAt time.Time, ok bool, err error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Result carries a cached or freshly computed payload. Age is zero for a
// fresh computation.
type Result struct {
	Payload []byte
	Age     time.Duration
	Cached  bool
}

// Cache wraps a Store with per-key computation dedup: concurrent callers
// missing on the same key share one in-flight compute instead of each
// invoking the expensive downstream path.
type Cache struct {
	store  Store
	flight singleflight.Group
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

type flightResult struct {
	payload   []byte
	createdAt time.Time
	fromStore bool
}

// GetOrCompute returns the stored payload if one exists within ttl,
// otherwise computes, stores, and returns a fresh one. At most one compute
// per key is in flight at a time; waiting callers receive its result. The
// caller's ctx bounds only their own wait; an abandoned wait does not
// cancel the shared computation other callers may still be awaiting.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) (Result, error) {
	if payload, createdAt, ok, err := c.store.Get(ctx, key); err != nil {
		return Result{}, err
	} else if ok && time.Since(createdAt) < ttl {
		return Result{Payload: payload, Age: time.Since(createdAt), Cached: true}, nil
	}

	detached := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// Another caller may have finished while we queued behind the flight.
		if payload, createdAt, ok, err := c.store.Get(detached, key); err == nil && ok && time.Since(createdAt) < ttl {
			return flightResult{payload: payload, createdAt: createdAt, fromStore: true}, nil
		}
		payload, err := compute(detached)
		if err != nil {
			return nil, err
		}
		createdAt := time.Now()
		if err := c.store.Set(detached, key, payload, ttl); err != nil {
			return nil, err
		}
		return flightResult{payload: payload, createdAt: createdAt}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		fr := res.Val.(flightResult)
		return Result{Payload: fr.payload, Age: time.Since(fr.createdAt), Cached: fr.fromStore}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Key derives a deterministic cache key from the normalized query text and
// the as-of date.
func Key(query string, asOf time.Time) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(normalized + "|" + asOf.Format("2006-01-02")))
	return "answer:" + hex.EncodeToString(sum[:])
}
