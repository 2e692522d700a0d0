// Package fallback produces synthetic profiles for when the real backend
// cannot be reached or must not be called.
package fallback

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"

	"profilegate/internal/model"
)

const (
	postCount  = 5
	mediaCount = 12

	pictureURL = "https://via.placeholder.com/150"
)

// Provider generates synthetic profiles. It never fails.
type Provider struct {
	deterministic bool
	now           func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

type Option func(*Provider)

// WithDeterministic seeds each profile from its key, so the same key always
// yields the same numbers.
func WithDeterministic() Option { return func(p *Provider) { p.deterministic = true } }

func WithClock(now func() time.Time) Option { return func(p *Provider) { p.now = now } }

func New(opts ...Option) *Provider {
	p := &Provider{
		now: time.Now,
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xda3e39cb94b95bdb)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Profile returns a plausible public profile for key: 500-5000 followers,
// 100-1000 following and five recent posts.
func (p *Provider) Profile(key string) *model.Profile {
	r := p.source(key)
	now := p.now()

	prof := &model.Profile{
		Username:    key,
		FullName:    "Sample Profile",
		Biography:   "Synthetic data (safe mode)",
		Followers:   r.between(500, 5000),
		Following:   r.between(100, 1000),
		MediaCount:  mediaCount,
		PictureURL:  pictureURL,
		CollectedAt: now,
		Posts:       make([]model.Post, 0, postCount),
	}
	for i := 0; i < postCount; i++ {
		prof.Posts = append(prof.Posts, model.Post{
			Likes:    r.between(50, 500),
			Comments: r.between(0, 30),
			Caption:  fmt.Sprintf("Sample post %d", i+1),
			Date:     now.Add(-time.Duration(i) * 24 * time.Hour),
			IsVideo:  r.coin(),
			URL:      "#",
		})
	}
	return prof
}

type draw struct {
	mu  *sync.Mutex
	rnd *rand.Rand
}

func (d draw) between(lo, hi int) int {
	if d.mu != nil {
		d.mu.Lock()
		defer d.mu.Unlock()
	}
	return lo + d.rnd.IntN(hi-lo+1)
}

func (d draw) coin() bool { return d.between(0, 1) == 1 }

func (p *Provider) source(key string) draw {
	if !p.deterministic {
		return draw{mu: &p.mu, rnd: p.rnd}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return draw{rnd: rand.New(rand.NewPCG(h.Sum64(), 0))}
}
