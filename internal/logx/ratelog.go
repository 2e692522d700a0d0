// Package logx holds logging helpers shared by the service components.
package logx

import (
	"log"
	"sync"
	"time"
)

// RateLimited prints at most one line per key per interval. Lines dropped in
// between are counted and reported with the next line that gets through.
type RateLimited struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	dropped  map[string]int
	now      func() time.Time
	printf   func(format string, args ...any)
}

func NewRateLimited(interval time.Duration) *RateLimited {
	return &RateLimited{
		interval: interval,
		last:     map[string]time.Time{},
		dropped:  map[string]int{},
		now:      time.Now,
		printf:   log.Printf,
	}
}

func (l *RateLimited) Printf(key, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if at, ok := l.last[key]; ok && now.Sub(at) < l.interval {
		l.dropped[key]++
		return
	}
	l.last[key] = now
	if n := l.dropped[key]; n > 0 {
		delete(l.dropped, key)
		format += " (%d similar suppressed)"
		args = append(args, n)
	}
	l.printf(format, args...)
}
