// Package governor decides, per incoming request, whether the upstream may be
// called now, whether the caller must wait, or whether a cached result is
// available instead.
package governor

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"profilegate/internal/cache"
	"profilegate/internal/logx"
	"profilegate/internal/model"
)

type Scope string

const (
	ScopeNone     Scope = ""
	ScopeUpstream Scope = "upstream"
	ScopeGlobal   Scope = "global"
	ScopeKey      Scope = "key"
)

// Decision is the outcome of one admission check. CacheHit is a hint: the
// request is admitted but a live cache entry should be preferred over a
// fresh upstream call.
type Decision struct {
	Proceed  bool
	Wait     time.Duration
	CacheHit bool
	Scope    Scope
}

// WaitSeconds rounds Wait up so a denied decision never reports zero.
func (d Decision) WaitSeconds() int {
	if d.Wait <= 0 {
		return 0
	}
	return int(math.Ceil(d.Wait.Seconds()))
}

// BlockReporter is implemented by the upstream client, which keeps its own
// block window after rate-limit signals.
type BlockReporter interface {
	BlockedUntil() time.Time
}

// BlockStore persists the global block so it survives restarts.
type BlockStore interface {
	LoadGlobalBlock(ctx context.Context) (time.Time, error)
	SaveGlobalBlock(ctx context.Context, until time.Time) error
}

type Option func(*Governor)

func WithUpstream(r BlockReporter) Option { return func(g *Governor) { g.upstream = r } }
func WithBlockStore(s BlockStore) Option { return func(g *Governor) { g.store = s } }
func WithClock(now func() time.Time) Option { return func(g *Governor) { g.now = now } }

const sweepThreshold = 4096

type Governor struct {
	minInterval time.Duration
	cache       *cache.Cache
	upstream    BlockReporter
	store       BlockStore
	now         func() time.Time
	denyLog     *logx.RateLimited

	mu          sync.Mutex
	lastRequest map[string]time.Time
	globalUntil time.Time

	persistMu sync.Mutex
}

func New(minInterval time.Duration, c *cache.Cache, opts ...Option) *Governor {
	g := &Governor{
		minInterval: minInterval,
		cache:       c,
		now:         time.Now,
		denyLog:     logx.NewRateLimited(30 * time.Second),
		lastRequest: map[string]time.Time{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Restore loads a persisted global block. A block that already ended is
// ignored.
func (g *Governor) Restore(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	until, err := g.store.LoadGlobalBlock(ctx)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if until.After(g.now()) {
		g.globalUntil = until
		log.Printf("governor: restored global block until %s", until.Format(time.RFC3339))
	}
	return nil
}

// Admit runs the admission checks in order; the first match wins. The whole
// check, including the cooldown reservation for an admitted fresh call, is
// one critical section.
func (g *Governor) Admit(key string) Decision { return g.admit(key, true) }

// AdmitFresh is Admit without the cache check, for callers that must reach
// the upstream even while a live entry exists. Blocks and the cooldown still
// apply.
func (g *Governor) AdmitFresh(key string) Decision { return g.admit(key, false) }

func (g *Governor) admit(key string, useCache bool) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	if g.upstream != nil {
		if until := g.upstream.BlockedUntil(); until.After(now) {
			g.denyLog.Printf("upstream", "governor: upstream block active, wait %s", until.Sub(now).Round(time.Second))
			return Decision{Wait: until.Sub(now), Scope: ScopeUpstream}
		}
	}

	if !g.globalUntil.IsZero() {
		if g.globalUntil.After(now) {
			g.denyLog.Printf("global", "governor: global block active, wait %s", g.globalUntil.Sub(now).Round(time.Second))
			return Decision{Wait: g.globalUntil.Sub(now), Scope: ScopeGlobal}
		}
		g.globalUntil = time.Time{}
		log.Printf("governor: global block expired")
	}

	if useCache && g.cache != nil {
		if _, ok := g.cache.Get(key); ok {
			return Decision{Proceed: true, CacheHit: true}
		}
	}

	if last, ok := g.lastRequest[key]; ok {
		if elapsed := now.Sub(last); elapsed < g.minInterval {
			return Decision{Wait: g.minInterval - elapsed, Scope: ScopeKey}
		}
	}

	g.lastRequest[key] = now
	if len(g.lastRequest) > sweepThreshold {
		g.sweepLocked(now)
	}
	return Decision{Proceed: true}
}

// RegisterSuccess stamps the key's cooldown and, when snap is non-nil,
// writes the cache entry for key.
func (g *Governor) RegisterSuccess(key string, snap *model.Snapshot) {
	g.mu.Lock()
	g.lastRequest[key] = g.now()
	g.mu.Unlock()

	if snap != nil && g.cache != nil {
		g.cache.Put(key, *snap)
	}
}

// Cached returns the live cache entry for key, if any.
func (g *Governor) Cached(key string) (cache.Entry, bool) {
	if g.cache == nil {
		return cache.Entry{}, false
	}
	return g.cache.Get(key)
}

// SetGlobalBlock denies every key for d from now. A new call replaces the
// previous window; durations never add up.
func (g *Governor) SetGlobalBlock(d time.Duration) time.Time {
	g.mu.Lock()
	until := g.now().Add(d)
	g.globalUntil = until
	g.mu.Unlock()

	log.Printf("governor: global block set for %s", d)
	g.persist()
	return until
}

func (g *Governor) persist() {
	if g.store == nil {
		return
	}
	g.persistMu.Lock()
	defer g.persistMu.Unlock()

	g.mu.Lock()
	until := g.globalUntil
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.store.SaveGlobalBlock(ctx, until); err != nil {
		log.Printf("governor: persist global block: %v", err)
	}
}

type Status struct {
	GlobalBlockedUntil   time.Time
	UpstreamBlockedUntil time.Time
	CacheEntries         int
	TrackedKeys          int
}

// Blocked reports whether either block window is active at now.
func (s Status) Blocked(now time.Time) bool {
	return s.GlobalBlockedUntil.After(now) || s.UpstreamBlockedUntil.After(now)
}

func (g *Governor) Status() Status {
	g.mu.Lock()
	st := Status{GlobalBlockedUntil: g.globalUntil, TrackedKeys: len(g.lastRequest)}
	g.mu.Unlock()
	if g.upstream != nil {
		st.UpstreamBlockedUntil = g.upstream.BlockedUntil()
	}
	if g.cache != nil {
		st.CacheEntries = g.cache.Len()
	}
	return st
}

func (g *Governor) Now() time.Time { return g.now() }

func (g *Governor) sweepLocked(now time.Time) {
	for k, at := range g.lastRequest {
		if now.Sub(at) >= g.minInterval {
			delete(g.lastRequest, k)
		}
	}
}
