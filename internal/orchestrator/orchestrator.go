// Package orchestrator runs one external request through admission, the
// upstream fetch and, when that cannot complete, the fallback path, and
// always answers with a model.Envelope.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"profilegate/internal/cache"
	"profilegate/internal/governor"
	"profilegate/internal/metrics"
	"profilegate/internal/model"
)

// Governor is the admission side, implemented by *governor.Governor.
type Governor interface {
	Admit(key string) governor.Decision
	AdmitFresh(key string) governor.Decision
	RegisterSuccess(key string, snap *model.Snapshot)
	Cached(key string) (cache.Entry, bool)
	SetGlobalBlock(d time.Duration) time.Time
	Status() governor.Status
}

// Fetcher is the upstream client. A nil Fetcher runs the service degraded:
// every fresh request falls back.
type Fetcher interface {
	FetchProfile(ctx context.Context, identifier string) (*model.Profile, error)
}

type FallbackSource interface {
	Profile(key string) *model.Profile
}

type Narrator interface {
	Generate(ctx context.Context, p *model.Profile, m model.Metrics) *model.Narrative
}

type Renderer interface {
	Render(key string, p *model.Profile, m model.Metrics, n *model.Narrative) (string, error)
}

type Deps struct {
	Governor Governor
	Fetcher  Fetcher
	Fallback FallbackSource
	Narrator Narrator
	Renderer Renderer

	// DiskUsage reports the cache disk tier size for the stats log; optional.
	DiskUsage func() int64
}

type Config struct {
	RateLimitBlock time.Duration
	AccessBlock    time.Duration
	LogStatsEvery  time.Duration
}

// RateLimitedError is returned when admission is denied and nothing is
// cached for the key.
type RateLimitedError struct {
	Key        string
	RetryAfter int
	Scope      governor.Scope
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry %q after %ds (%s)", e.Key, e.RetryAfter, e.Scope)
}

type Orchestrator struct {
	deps Deps
	cfg  Config

	now   func() time.Time
	newID func() string

	stats  *statsCollector
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }
func WithIDs(fn func() string) Option { return func(o *Orchestrator) { o.newID = fn } }

func New(deps Deps, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
		stats:  newStatsCollector(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if cfg.LogStatsEvery > 0 {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.statsLoop(cfg.LogStatsEvery)
		}()
	}
	return o
}

func (o *Orchestrator) Close() {
	close(o.stopCh)
	o.wg.Wait()
}

func (o *Orchestrator) UpstreamEnabled() bool { return o.deps.Fetcher != nil }

// Handle is the full analysis: profile, metrics and narrative.
func (o *Orchestrator) Handle(ctx context.Context, key string) (*model.Envelope, error) {
	return o.handle(ctx, key, true)
}

// handle runs the analysis. With preferCache unset a live cache entry does
// not short-circuit admission; it is only served when admission is denied.
func (o *Orchestrator) handle(ctx context.Context, key string, preferCache bool) (*model.Envelope, error) {
	var dec governor.Decision
	if preferCache {
		dec = o.deps.Governor.Admit(key)
	} else {
		dec = o.deps.Governor.AdmitFresh(key)
	}
	if !dec.Proceed {
		if ent, ok := o.deps.Governor.Cached(key); ok {
			return o.fromCache(key, ent), nil
		}
		o.stats.denied.Add(1)
		return nil, &RateLimitedError{Key: key, RetryAfter: dec.WaitSeconds(), Scope: dec.Scope}
	}
	if preferCache && dec.CacheHit {
		if ent, ok := o.deps.Governor.Cached(key); ok {
			return o.fromCache(key, ent), nil
		}
	}

	if o.deps.Fetcher == nil {
		return o.fallback(ctx, key, remedy{
			reason:  model.ReasonUpstreamDisabled,
			status:  model.StatusFallback,
			warning: "Upstream client is not available. Serving sample data.",
		}, true), nil
	}

	p, err := o.fetch(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return o.recoverFrom(ctx, key, err, true), nil
	}

	m := metrics.Compute(p)
	n := o.deps.Narrator.Generate(ctx, p, m)
	snap := model.Snapshot{Profile: *p, Metrics: m, Narrative: n}
	o.deps.Governor.RegisterSuccess(key, &snap)

	o.stats.live.Add(1)
	env := o.envelope(key, snap, model.SourceLive, model.StatusSuccess)
	if p.Partial {
		env.Warning = "Profile collected without posts; the upstream may be restricting access."
	}
	return env, nil
}

// HandleFallback answers with synthetic data without touching the upstream.
func (o *Orchestrator) HandleFallback(ctx context.Context, key string) *model.Envelope {
	log.Printf("orchestrator: forced fallback for %s", key)
	return o.fallback(ctx, key, remedy{
		reason:  model.ReasonForced,
		status:  model.StatusSuccess,
		warning: "Sample data, not collected from the upstream.",
	}, true)
}

// Profile returns the profile without narrative. A cached analysis is served
// first; a fresh fetch stamps the key's cooldown but is not cached.
func (o *Orchestrator) Profile(ctx context.Context, key string) (*model.Envelope, error) {
	if ent, ok := o.deps.Governor.Cached(key); ok {
		env := o.fromCache(key, ent)
		env.Narrative = nil
		return env, nil
	}

	dec := o.deps.Governor.Admit(key)
	if !dec.Proceed {
		o.stats.denied.Add(1)
		return nil, &RateLimitedError{Key: key, RetryAfter: dec.WaitSeconds(), Scope: dec.Scope}
	}

	if o.deps.Fetcher == nil {
		return o.fallback(ctx, key, remedy{
			reason:  model.ReasonUpstreamDisabled,
			status:  model.StatusFallback,
			warning: "Upstream client is not available. Serving sample data.",
		}, false), nil
	}

	p, err := o.fetch(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return o.recoverFrom(ctx, key, err, false), nil
	}
	o.deps.Governor.RegisterSuccess(key, nil)

	o.stats.live.Add(1)
	return o.envelope(key, model.Snapshot{Profile: *p, Metrics: metrics.Compute(p)}, model.SourceLive, model.StatusSuccess), nil
}

type ReportResult struct {
	Path     string          `json:"path"`
	Envelope *model.Envelope `json:"result"`
}

// Report renders a document from the cached analysis when useCache allows,
// otherwise from a fresh fetch. Admission denial without a cached analysis
// falls back to synthetic data instead of failing.
func (o *Orchestrator) Report(ctx context.Context, key string, useCache bool) (*ReportResult, error) {
	if o.deps.Renderer == nil {
		return nil, errors.New("orchestrator: no report renderer configured")
	}

	var env *model.Envelope
	if useCache {
		if ent, ok := o.deps.Governor.Cached(key); ok {
			env = o.fromCache(key, ent)
		}
	}
	if env == nil {
		var err error
		env, err = o.handle(ctx, key, useCache)
		var rl *RateLimitedError
		switch {
		case errors.As(err, &rl):
			env = o.fallback(ctx, key, remedy{
				reason:     model.ReasonRateLimited,
				status:     model.StatusLimited,
				retryAfter: rl.RetryAfter,
				warning:    fmt.Sprintf("Rate limited, retry in %ds. Report built from sample data.", rl.RetryAfter),
			}, true)
		case err != nil:
			return nil, err
		}
	}

	path, err := o.deps.Renderer.Render(key, &env.Profile, env.Metrics, env.Narrative)
	if err != nil {
		return nil, fmt.Errorf("render report for %s: %w", key, err)
	}
	o.stats.reports.Add(1)
	return &ReportResult{Path: path, Envelope: env}, nil
}

type StatusReport struct {
	Status               string        `json:"status"`
	RateLimited          bool          `json:"rate_limited"`
	GlobalBlockedUntil   *time.Time    `json:"global_blocked_until"`
	UpstreamBlockedUntil *time.Time    `json:"upstream_blocked_until"`
	CacheEntries         int           `json:"cache_entries"`
	UpstreamEnabled      bool          `json:"upstream_enabled"`
	Counters             StatsSnapshot `json:"counters"`
	Message              string        `json:"message"`
}

func (o *Orchestrator) Status() StatusReport {
	now := o.now()
	gs := o.deps.Governor.Status()
	rep := StatusReport{
		Status:          "online",
		CacheEntries:    gs.CacheEntries,
		UpstreamEnabled: o.deps.Fetcher != nil,
		Counters:        o.stats.Snapshot(),
		Message:         "Operational",
	}
	if gs.GlobalBlockedUntil.After(now) {
		t := gs.GlobalBlockedUntil
		rep.GlobalBlockedUntil = &t
	}
	if gs.UpstreamBlockedUntil.After(now) {
		t := gs.UpstreamBlockedUntil
		rep.UpstreamBlockedUntil = &t
	}
	switch {
	case gs.Blocked(now):
		rep.Status, rep.RateLimited, rep.Message = "blocked", true, "Rate limiting in effect"
	case !rep.UpstreamEnabled:
		rep.Status, rep.Message = "degraded", "Upstream disabled; serving cache and sample data"
	}
	return rep
}

func (o *Orchestrator) fetch(ctx context.Context, key string) (*model.Profile, error) {
	start := o.now()
	p, err := o.deps.Fetcher.FetchProfile(ctx, key)
	o.stats.ObserveFetch(o.now().Sub(start))
	return p, err
}

// recoverFrom turns a classified failure into a fallback envelope, setting the
// global block first when the failure calls for one.
func (o *Orchestrator) recoverFrom(ctx context.Context, key string, err error, withNarrative bool) *model.Envelope {
	r := o.classify(err)
	if r.block > 0 {
		o.deps.Governor.SetGlobalBlock(r.block)
	}
	log.Printf("orchestrator: %s for %s: %v", r.reason, key, err)
	return o.fallback(ctx, key, r, withNarrative)
}

func (o *Orchestrator) fallback(ctx context.Context, key string, r remedy, withNarrative bool) *model.Envelope {
	p := o.deps.Fallback.Profile(key)
	m := metrics.Compute(p)
	snap := model.Snapshot{Profile: *p, Metrics: m}
	if withNarrative {
		snap.Narrative = o.deps.Narrator.Generate(ctx, p, m)
	}

	o.stats.fallback.Add(1)
	env := o.envelope(key, snap, model.SourceFallback, r.status)
	env.Reason = r.reason
	env.Warning = r.warning
	env.RetryAfter = r.retryAfter
	return env
}

func (o *Orchestrator) fromCache(key string, ent cache.Entry) *model.Envelope {
	o.stats.cache.Add(1)
	env := o.envelope(key, ent.Snapshot, model.SourceCache, model.StatusSuccess)
	env.Cached = true
	env.CacheAgeMinutes = int(ent.Age(o.now()).Minutes())
	return env
}

func (o *Orchestrator) envelope(key string, snap model.Snapshot, src model.DataSource, st model.Status) *model.Envelope {
	return &model.Envelope{
		RequestID:   o.newID(),
		Key:         key,
		Profile:     snap.Profile,
		Metrics:     snap.Metrics,
		Narrative:   snap.Narrative,
		DataSource:  src,
		Status:      st,
		GeneratedAt: o.now(),
	}
}
