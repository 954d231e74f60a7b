package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"lex-dialog/internal/lexerr"
	"lex-dialog/internal/metrics"
)

const (
	defaultCacheSize = 128
	defaultCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	bot      *Bot
	storedAt time.Time
}

// Catalog resolves bot aliases through a Source, caching definitions for a
// while. Concurrent misses for the same alias share one load.
type Catalog struct {
	source Source
	cache  *lru.Cache[string, cacheEntry]
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
}

type Option func(*Catalog)

// WithTTL sets how long a loaded definition is served from the cache.
func WithTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

func New(source Source, size int, opts ...Option) (*Catalog, error) {
	if source == nil {
		return nil, errors.New("catalog: source must not be nil")
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("catalog: create cache: %w", err)
	}
	c := &Catalog{
		source: source,
		cache:  cache,
		ttl:    defaultCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resolve returns the definition of a bot alias that can take part in a
// conversation. Unknown aliases are NotFound; bots that are still building or
// failed to build are BadGateway.
func (c *Catalog) Resolve(ctx context.Context, bot, alias string) (*Bot, error) {
	b, err := c.load(ctx, bot, alias)
	if err != nil {
		if errors.Is(err, ErrBotNotFound) {
			return nil, lexerr.NotFound(fmt.Sprintf("bot %s alias %s not found", bot, alias))
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, lexerr.New(lexerr.KindRequestTimeout, "load bot definition", err)
		}
		return nil, lexerr.Internal("load bot definition", err)
	}
	switch b.Status {
	case StatusBuilding:
		return nil, lexerr.BadGateway(fmt.Sprintf("bot %s is building", bot), nil)
	case StatusFailed:
		return nil, lexerr.BadGateway(fmt.Sprintf("bot %s failed to build", bot), nil)
	}
	return b, nil
}

// Invalidate drops a cached definition.
func (c *Catalog) Invalidate(bot, alias string) {
	c.cache.Remove(cacheKey(bot, alias))
}

// Warm loads every definition the source can enumerate into the cache and
// returns how many were stored. Sources that cannot enumerate load nothing.
func (c *Catalog) Warm(ctx context.Context) (int, error) {
	enum, ok := c.source.(Enumerator)
	if !ok {
		return 0, nil
	}
	bots, err := enum.All(ctx)
	metrics.RecordCatalogLoad(err == nil)
	if err != nil {
		return 0, err
	}
	now := c.now()
	for _, b := range bots {
		c.cache.Add(cacheKey(b.Name, b.Alias), cacheEntry{bot: b, storedAt: now})
	}
	return len(bots), nil
}

func (c *Catalog) load(ctx context.Context, bot, alias string) (*Bot, error) {
	key := cacheKey(bot, alias)
	if e, ok := c.cache.Get(key); ok && c.now().Sub(e.storedAt) < c.ttl {
		return e.bot, nil
	}
	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		b, err := c.source.Load(loadCtx, bot, alias)
		metrics.RecordCatalogLoad(err == nil)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, cacheEntry{bot: b, storedAt: c.now()})
		return b, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Bot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cacheKey(bot, alias string) string {
	return bot + "#" + alias
}
