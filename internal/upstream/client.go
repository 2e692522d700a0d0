// Package upstream owns the single authenticated session to the external
// profile backend and the fetch loop that retries, classifies, and backs off
// on its failures.
package upstream

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"profilegate/internal/model"
)

const (
	transientStep = 5 * time.Second
	unknownStep   = 3 * time.Second
	captionLimit  = 200

	PartialPostsBlocked = "posts_blocked"
)

type Range struct {
	Min time.Duration
	Max time.Duration
}

type Config struct {
	Credentials      Credentials
	MaxAttempts      int
	MaxItems         int
	SessionMaxAge    time.Duration
	HumanDelay       Range
	ItemDelay        Range
	BackoffFloor     time.Duration
	BackoffCeiling   time.Duration
	UnauthorizedWait time.Duration
}

// Attempt describes one iteration of the fetch loop, reported to the
// observer hook. Err is nil on success.
type Attempt struct {
	Identifier string
	Index      int
	Start      time.Time
	Kind       Kind
	Err        error
}

func (a Attempt) Outcome() string {
	if a.Err == nil {
		return "success"
	}
	return a.Kind.String()
}

type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Client)

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }
func WithSleep(s SleepFunc) Option { return func(c *Client) { c.sleep = s } }
func WithRand(r *rand.Rand) Option { return func(c *Client) { c.rnd = r } }
func WithObserver(fn func(Attempt)) Option { return func(c *Client) { c.observe = fn } }
func WithSessionStore(s SessionStore) Option { return func(c *Client) { c.store = s } }

type Client struct {
	src   Source
	cfg   Config
	creds Credentials
	store SessionStore

	now     func() time.Time
	sleep   SleepFunc
	observe func(Attempt)

	rndMu sync.Mutex
	rnd   *rand.Rand

	// mu guards the session slot. Fetches hold the read side for each
	// network call; login and renewal hold the write side.
	mu      sync.RWMutex
	session *Session
	state   SessionState

	blockMu      sync.Mutex
	backoff      Backoff
	blockedUntil time.Time
}

// New builds a client and establishes its session. It fails with
// ErrAuthentication when no usable session can be obtained.
func New(ctx context.Context, src Source, cfg Config, opts ...Option) (*Client, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	c := &Client{
		src:     src,
		cfg:     cfg,
		creds:   cfg.Credentials,
		now:     time.Now,
		sleep:   sleepCtx,
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		backoff: Backoff{Floor: cfg.BackoffFloor, Ceiling: cfg.BackoffCeiling},
	}
	for _, o := range opts {
		o(c)
	}
	if err := c.startSession(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// BlockedUntil is the end of the client's own block window, zero when none
// was ever set.
func (c *Client) BlockedUntil() time.Time {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()
	return c.blockedUntil
}

// ResetBackoff clears the escalation state. The current block window is
// left to run out.
func (c *Client) ResetBackoff() {
	c.blockMu.Lock()
	c.backoff.Reset()
	c.blockMu.Unlock()
	log.Printf("upstream: backoff reset")
}

func (c *Client) BackoffState() time.Duration {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()
	return c.backoff.Current()
}

// FetchProfile fetches identifier with its most recent posts.
func (c *Client) FetchProfile(ctx context.Context, identifier string) (*model.Profile, error) {
	if until := c.BlockedUntil(); until.After(c.now()) {
		return nil, &Error{
			Kind:       KindRateLimited,
			Identifier: identifier,
			RetryAfter: until.Sub(c.now()),
			Message:    "client block active",
		}
	}

	_ = c.EnsureFresh(ctx)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.pause(ctx, c.humanDelay(attempt)); err != nil {
			return nil, err
		}

		start := c.now()
		p, err := c.fetchOnce(ctx, identifier)
		kind := KindOf(err)
		if c.observe != nil {
			c.observe(Attempt{Identifier: identifier, Index: attempt, Start: start, Kind: kind, Err: err})
		}
		if err == nil {
			return c.collect(ctx, identifier, p)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		switch kind {
		case KindNotFound, KindPrivate:
			return nil, &Error{Kind: kind, Identifier: identifier, Attempts: attempt, Err: err}

		case KindAuthExpired:
			log.Printf("upstream: session rejected while fetching %s, logging in again", identifier)
			if rerr := c.relogin(ctx); rerr != nil {
				return nil, &Error{Kind: KindAuthExpired, Identifier: identifier, Attempts: attempt, Err: rerr}
			}

		case KindRateLimited:
			wait := c.escalate(RetryAfterOf(err))
			log.Printf("upstream: rate limited fetching %s, blocking for %s", identifier, wait)
			return nil, &Error{Kind: KindRateLimited, Identifier: identifier, Attempts: attempt, RetryAfter: wait, Err: err}

		case KindUnauthorized:
			wait := c.escalate(max(c.cfg.UnauthorizedWait, RetryAfterOf(err)))
			log.Printf("upstream: unauthorized fetching %s, blocking for %s", identifier, wait)
			return nil, &Error{Kind: KindUnauthorized, Identifier: identifier, Attempts: attempt, RetryAfter: wait, Err: err}

		case KindTransient:
			log.Printf("upstream: connection error fetching %s (attempt %d/%d): %v", identifier, attempt, c.cfg.MaxAttempts, err)
			if attempt < c.cfg.MaxAttempts {
				if err := c.pause(ctx, time.Duration(attempt)*transientStep); err != nil {
					return nil, err
				}
			}

		default:
			log.Printf("upstream: error fetching %s (attempt %d/%d): %v", identifier, attempt, c.cfg.MaxAttempts, err)
			if attempt < c.cfg.MaxAttempts {
				if err := c.pause(ctx, time.Duration(attempt)*unknownStep); err != nil {
					return nil, err
				}
			}
		}
	}

	return nil, &Error{
		Kind:       KindOf(lastErr),
		Identifier: identifier,
		Attempts:   c.cfg.MaxAttempts,
		Err:        lastErr,
		exhausted:  true,
	}
}

func (c *Client) fetchOnce(ctx context.Context, identifier string) (*model.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil, &Error{Kind: KindAuthExpired, Identifier: identifier, Message: "no session"}
	}
	return c.src.Profile(ctx, c.session.Blob, identifier)
}

func (c *Client) fetchPosts(ctx context.Context, identifier, cursor string) (PostsPage, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return PostsPage{}, &Error{Kind: KindAuthExpired, Identifier: identifier, Message: "no session"}
	}
	return c.src.Posts(ctx, c.session.Blob, identifier, cursor)
}

// collect walks the posts sub-resource up to MaxItems. A posts failure keeps
// the profile; a cancelled context drops everything.
func (c *Client) collect(ctx context.Context, identifier string, p *model.Profile) (*model.Profile, error) {
	out := *p
	out.Posts = nil
	if out.Username == "" {
		out.Username = identifier
	}
	out.CollectedAt = c.now()

	cursor := ""
	for len(out.Posts) < c.cfg.MaxItems {
		page, err := c.fetchPosts(ctx, identifier, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if KindOf(err) == KindRateLimited {
				wait := c.escalate(RetryAfterOf(err))
				log.Printf("upstream: rate limited reading posts of %s, blocking for %s", identifier, wait)
			} else {
				log.Printf("upstream: posts of %s: %v", identifier, err)
			}
			break
		}
		for _, post := range page.Items {
			if len(out.Posts) >= c.cfg.MaxItems {
				break
			}
			if len(out.Posts) > 0 {
				if err := c.pause(ctx, c.between(c.cfg.ItemDelay.Min, c.cfg.ItemDelay.Max)); err != nil {
					return nil, err
				}
			}
			post.Caption = truncateRunes(post.Caption, captionLimit)
			out.Posts = append(out.Posts, post)
		}
		if page.NextCursor == "" || len(page.Items) == 0 {
			break
		}
		cursor = page.NextCursor
	}

	if len(out.Posts) == 0 && c.cfg.MaxItems > 0 && out.MediaCount > 0 {
		out.Partial = true
		out.PartialReason = PartialPostsBlocked
	}
	return &out, nil
}

// escalate advances the backoff and moves the block window in one critical
// section.
func (c *Client) escalate(requested time.Duration) time.Duration {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()
	wait := c.backoff.Escalate(requested)
	if until := c.now().Add(wait); until.After(c.blockedUntil) {
		c.blockedUntil = until
	}
	return wait
}

func (c *Client) humanDelay(attempt int) time.Duration {
	lo := c.cfg.HumanDelay.Min * time.Duration(attempt)
	hi := c.cfg.HumanDelay.Max * time.Duration(attempt)
	base := c.between(lo, hi)
	if base <= 0 {
		return 0
	}
	c.rndMu.Lock()
	jitter := 0.5 + c.rnd.Float64()
	c.rndMu.Unlock()
	return time.Duration(float64(base) * jitter)
}

func (c *Client) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return lo + time.Duration(c.rnd.Int64N(int64(hi-lo)+1))
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return c.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
