package ledger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"apdash/internal/clock"
	"apdash/internal/logger"
	"apdash/pkg/models"
)

// DefaultTTL is how long a fetched ledger is served before it is re-read.
const DefaultTTL = time.Hour

// Snapshot is the ledger as of one successful fetch. Its records are shared
// between readers and must not be modified.
type Snapshot struct {
	Records     []models.InvoiceRecord `json:"-"`
	Diagnostics Diagnostics            `json:"diagnostics"`
	Source      string                 `json:"source"`
	LoadedAt    time.Time              `json:"loaded_at"`
}

// Cache is a read-through cache of the ledger with a time-to-live.
type Cache struct {
	source       Source
	reader       *Reader
	clock        clock.Clock
	ttl          time.Duration
	fetchTimeout time.Duration
	log          zerolog.Logger

	// fetches coalesces concurrent loads of the same generation
	fetches singleflight.Group

	mu         sync.Mutex
	current    *Snapshot
	stale      bool
	generation uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the time-to-live. Zero or less re-reads the source on every load.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock replaces the wall clock used for expiry.
func WithClock(clk clock.Clock) CacheOption {
	return func(c *Cache) { c.clock = clk }
}

// WithFetchTimeout bounds one fetch of the source. A fetch is shared by all
// waiting loads, so it does not stop when a single caller gives up.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithReader replaces the row reader.
func WithReader(r *Reader) CacheOption {
	return func(c *Cache) { c.reader = r }
}

// WithLogger sets the logger used by the cache.
func WithLogger(log zerolog.Logger) CacheOption {
	return func(c *Cache) { c.log = log.With().Str("component", "ledger-cache").Logger() }
}

// NewCache wraps a source with a read-through cache.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		clock:  clock.System{},
		ttl:    DefaultTTL,
		log:    logger.WithComponent("ledger-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reader == nil {
		c.reader = NewReaderWithLogger(c.log)
	}
	return c
}

// Load returns the cached snapshot, fetching the source when the cache is
// empty, expired or invalidated. Concurrent loads share one fetch. A failed
// fetch returns an error matching ErrSourceUnavailable and leaves the previous
// snapshot in place. Load stops waiting when ctx is done.
func (c *Cache) Load(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	if c.fresh(c.clock.Now()) {
		snap := c.current
		c.mu.Unlock()
		return snap, nil
	}
	generation := c.generation
	c.mu.Unlock()

	results := c.fetches.DoChan(strconv.FormatUint(generation, 10), func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), generation)
	})

	select {
	case <-ctx.Done():
		return nil, NewSourceError("Load", c.source.Name(), ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (c *Cache) fetch(ctx context.Context, generation uint64) (*Snapshot, error) {
	// a flight that finished just before this one may already have loaded it
	c.mu.Lock()
	if c.generation == generation && c.fresh(c.clock.Now()) {
		snap := c.current
		c.mu.Unlock()
		return snap, nil
	}
	c.mu.Unlock()

	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	c.log.Debug().Str("source", c.source.Name()).Msg("Fetching ledger")

	rows, err := c.source.Fetch(ctx)
	if err != nil {
		c.log.Error().Err(err).Str("source", c.source.Name()).Msg("Ledger fetch failed")
		return nil, NewSourceError("Load", c.source.Name(), err)
	}

	parsed, err := c.reader.Parse(rows)
	if err != nil {
		c.log.Error().Err(err).Str("source", c.source.Name()).Msg("Ledger could not be parsed")
		return nil, NewSourceError("Load", c.source.Name(), err)
	}

	now := c.clock.Now()
	snap := &Snapshot{
		Records:     parsed.Records,
		Diagnostics: parsed.Diagnostics,
		Source:      c.source.Name(),
		LoadedAt:    now,
	}

	c.mu.Lock()
	c.current = snap
	// an Invalidate during the fetch keeps the cache stale
	c.stale = c.generation != generation
	c.mu.Unlock()

	c.log.Info().
		Int("records", len(parsed.Records)).
		Str("source", c.source.Name()).
		Time("loaded_at", now).
		Msg("Ledger loaded")

	return snap, nil
}

// Invalidate forces the next Load to re-read the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stale = true
	c.generation++
	c.log.Debug().Msg("Ledger cache invalidated")
}

// Refresh invalidates the cache and loads the ledger again.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.Invalidate()
	return c.Load(ctx)
}

// Current returns the last successful snapshot without fetching, or nil.
func (c *Cache) Current() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LoadedAt reports when the current snapshot was fetched; ok is false before
// the first successful load.
func (c *Cache) LoadedAt() (t time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return time.Time{}, false
	}
	return c.current.LoadedAt, true
}

// SourceName describes the wrapped source.
func (c *Cache) SourceName() string {
	return c.source.Name()
}

func (c *Cache) fresh(now time.Time) bool {
	if c.current == nil || c.stale || c.ttl <= 0 {
		return false
	}
	return now.Sub(c.current.LoadedAt) < c.ttl
}
