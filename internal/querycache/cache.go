package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/travel-booking/internal/config"
)

// Refetcher reloads the value of every key of one kind; arg is the part of
// the key after the colon.
type Refetcher func(ctx context.Context, arg string) (any, error)

// Cache is the process-wide query cache.  Any caller may read or
// invalidate any key.
type Cache struct {
	backend Backend
	cfg     config.QueryCacheConfig
	logger  *slog.Logger
	group   singleflight.Group
	now     func() time.Time

	mu         sync.Mutex
	refetchers map[string]Refetcher

	// Writes to a key are serialized by its stripe.  A key's version
	// advances on every invalidation; a load that started at an older
	// version is returned to its callers but not stored.
	stripes [stripeCount]stripe
}

const stripeCount = 64

type stripe struct {
	mu       sync.Mutex
	versions map[Key]uint64
}

// entry is the stored form of a cached value.  Invalidation clears
// FreshUntil but keeps Data, so a stale list can still be patched by a
// strike until the refetch lands.
type entry struct {
	Data       json.RawMessage `json:"data"`
	FreshUntil time.Time       `json:"fresh_until"`
}

// New builds a Cache over backend.  A nil logger means slog.Default().
func New(backend Backend, cfg config.QueryCacheConfig, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StaleTime <= 0 {
		cfg.StaleTime = 30 * time.Second
	}
	if cfg.GCTime < cfg.StaleTime {
		cfg.GCTime = cfg.StaleTime
	}
	c := &Cache{
		backend:    backend,
		cfg:        cfg,
		logger:     logger.With("component", "querycache"),
		now:        time.Now,
		refetchers: make(map[string]Refetcher),
	}
	for i := range c.stripes {
		c.stripes[i].versions = make(map[Key]uint64)
	}
	return c
}

// Register installs the refetcher used for keys of kind.
func (c *Cache) Register(kind string, r Refetcher) {
	c.mu.Lock()
	c.refetchers[kind] = r
	c.mu.Unlock()
}

// Fetch returns the value under key, loading it with load when the key is
// missing or stale.  Concurrent fetches of one key share a single load.
// A failed load is retried cfg.ReadRetries times and is never cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if e, ok := c.lookup(ctx, key); ok && c.now().Before(e.FreshUntil) {
		var out T
		if err := json.Unmarshal(e.Data, &out); err == nil {
			return out, nil
		}
	}
	v, err, _ := c.group.Do(string(key), func() (any, error) {
		version := c.version(key)
		var (
			data T
			err  error
		)
		for attempt := 0; attempt <= c.cfg.ReadRetries; attempt++ {
			if data, err = load(ctx); err == nil || ctx.Err() != nil {
				break
			}
			c.logger.Debug("load failed", "key", key, "attempt", attempt+1, "error", err)
		}
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("querycache: encode %s: %w", key, err)
		}
		c.storeIfCurrent(ctx, key, version, raw)
		return raw, nil
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(v.([]byte), &out); err != nil {
		return zero, fmt.Errorf("querycache: decode %s: %w", key, err)
	}
	return out, nil
}

// Peek returns the cached value under key whether or not it is stale.
func Peek[T any](ctx context.Context, c *Cache, key Key) (T, bool, error) {
	var out T
	e, ok := c.lookup(ctx, key)
	if !ok {
		return out, false, nil
	}
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return out, false, fmt.Errorf("querycache: decode %s: %w", key, err)
	}
	return out, true, nil
}

// Apply runs the cache plan of a successful mutation: invalidate, then
// strike, then refetch.  Failures leave the cache stale but never fail the
// mutation, so they are logged and dropped.
func (c *Cache) Apply(ctx context.Context, m Mutation, t Target) {
	plan := PlanFor(m, t)
	for _, k := range plan.Invalidate {
		if err := c.Invalidate(ctx, k); err != nil {
			c.logger.Warn("invalidate failed", "mutation", m, "key", k, "error", err)
		}
	}
	for _, s := range plan.Strike {
		if err := c.strike(ctx, s); err != nil {
			c.logger.Warn("strike failed", "mutation", m, "key", s.List, "id", s.ID, "error", err)
		}
	}
	for _, k := range plan.Refetch {
		if err := c.Refetch(ctx, k); err != nil {
			c.logger.Warn("refetch failed", "mutation", m, "key", k, "error", err)
		}
	}
	c.logger.Debug("mutation applied", "mutation", m, "invalidated", len(plan.Invalidate),
		"struck", len(plan.Strike), "refetched", len(plan.Refetch))
}

// Invalidate marks key stale.  The value stays readable through Peek until
// it is refetched or garbage collected.
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.write(key, true, func() error {
		e, ok := c.lookup(ctx, key)
		if !ok || e.FreshUntil.IsZero() {
			return nil
		}
		e.FreshUntil = time.Time{}
		return c.put(ctx, key, e)
	})
}

// Refetch reloads key with the refetcher registered for its kind and
// stores the result as fresh.  A result overtaken by a later invalidation
// is dropped; the key stays stale and the next Fetch reloads it.
func (c *Cache) Refetch(ctx context.Context, key Key) error {
	c.mu.Lock()
	r := c.refetchers[key.Kind()]
	c.mu.Unlock()
	if r == nil {
		return fmt.Errorf("querycache: no refetcher for %q", key.Kind())
	}
	version := c.version(key)
	v, err := r(ctx, key.Arg())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("querycache: encode %s: %w", key, err)
	}
	s := c.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[key] != version {
		c.logger.Debug("refetch overtaken by invalidation", "key", key)
		return nil
	}
	c.advance(s, key)
	return c.put(ctx, key, entry{Data: raw, FreshUntil: c.now().Add(c.cfg.StaleTime)})
}

// Drop removes keys outright.
func (c *Cache) Drop(ctx context.Context, keys ...Key) error {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		s := c.stripe(k)
		s.mu.Lock()
		c.advance(s, k)
		s.mu.Unlock()
		names = append(names, string(k))
	}
	return c.backend.Delete(ctx, names...)
}

// DropUser removes every key scoped to uid.
func (c *Cache) DropUser(ctx context.Context, uid string) error {
	return c.Drop(ctx, UserKeys(uid)...)
}

// strike removes the element whose "id" equals s.ID from the JSON array
// cached under s.List, keeping the entry's freshness.
func (c *Cache) strike(ctx context.Context, s Strike) error {
	return c.write(s.List, false, func() error { return c.strikeLocked(ctx, s) })
}

func (c *Cache) strikeLocked(ctx context.Context, s Strike) error {
	e, ok := c.lookup(ctx, s.List)
	if !ok {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &items); err != nil {
		return fmt.Errorf("querycache: %s is not a list: %w", s.List, err)
	}
	kept := items[:0]
	for _, it := range items {
		var id string
		if raw, ok := it["id"]; ok && json.Unmarshal(raw, &id) == nil && id == s.ID {
			continue
		}
		kept = append(kept, it)
	}
	if len(kept) == len(items) {
		return nil
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	e.Data = raw
	return c.put(ctx, s.List, e)
}

func (c *Cache) lookup(ctx context.Context, key Key) (entry, bool) {
	raw, ok, err := c.backend.Get(ctx, string(key))
	if err != nil {
		c.logger.Warn("backend get failed", "key", key, "error", err)
		return entry{}, false
	}
	if !ok {
		return entry{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("corrupt entry", "key", key, "error", err)
		return entry{}, false
	}
	return e, true
}

func (c *Cache) put(ctx context.Context, key Key, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, string(key), raw, c.cfg.GCTime)
}

// storeIfCurrent writes a loaded value unless key was invalidated while the
// load was in flight.  The version check and the write happen under the
// key's stripe, so an invalidation either precedes the check or follows the
// write.
func (c *Cache) storeIfCurrent(ctx context.Context, key Key, version uint64, raw []byte) {
	s := c.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[key] != version {
		c.logger.Debug("not caching load older than invalidation", "key", key)
		return
	}
	if err := c.put(ctx, key, entry{Data: raw, FreshUntil: c.now().Add(c.cfg.StaleTime)}); err != nil {
		c.logger.Warn("backend set failed", "key", key, "error", err)
	}
}

// write runs fn while holding key's stripe.  With bump set it first
// advances key's version and forgets any in-flight load of key, so the next
// Fetch starts a new one.
func (c *Cache) write(key Key, bump bool, fn func() error) error {
	s := c.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if bump {
		c.advance(s, key)
	}
	return fn()
}

// advance must be called with s.mu held.
func (c *Cache) advance(s *stripe, key Key) {
	s.versions[key]++
	c.group.Forget(string(key))
}

func (c *Cache) version(key Key) uint64 {
	s := c.stripe(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[key]
}

func (c *Cache) stripe(key Key) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &c.stripes[h.Sum32()%stripeCount]
}
