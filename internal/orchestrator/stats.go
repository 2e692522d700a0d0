package orchestrator

import (
	"fmt"
	"log"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"profilegate/internal/upstream"
)

type statsCollector struct {
	live     atomic.Uint64
	cache    atomic.Uint64
	fallback atomic.Uint64
	denied   atomic.Uint64
	reports  atomic.Uint64

	attempts       atomic.Uint64
	failedAttempts atomic.Uint64

	fetches      atomic.Uint64
	totalFetchNs atomic.Uint64
	minFetchNs   atomic.Uint64
	maxFetchNs   atomic.Uint64
}

func newStatsCollector() *statsCollector {
	s := &statsCollector{}
	s.minFetchNs.Store(math.MaxUint64)
	return s
}

func (s *statsCollector) ObserveFetch(d time.Duration) {
	if d < 0 {
		d = 0
	}
	n := uint64(d)

	s.fetches.Add(1)
	s.totalFetchNs.Add(n)

	for {
		cur := s.minFetchNs.Load()
		if n >= cur {
			break
		}
		if s.minFetchNs.CompareAndSwap(cur, n) {
			break
		}
	}
	for {
		cur := s.maxFetchNs.Load()
		if n <= cur {
			break
		}
		if s.maxFetchNs.CompareAndSwap(cur, n) {
			break
		}
	}
}

type StatsSnapshot struct {
	Live     uint64 `json:"live"`
	Cache    uint64 `json:"cache"`
	Fallback uint64 `json:"fallback"`
	Denied   uint64 `json:"denied"`
	Reports  uint64 `json:"reports"`

	Attempts       uint64 `json:"attempts"`
	FailedAttempts uint64 `json:"failed_attempts"`

	Fetches  uint64        `json:"fetches"`
	MinFetch time.Duration `json:"min_fetch_ns"`
	AvgFetch time.Duration `json:"avg_fetch_ns"`
	MaxFetch time.Duration `json:"max_fetch_ns"`
}

func (s *statsCollector) Snapshot() StatsSnapshot {
	out := StatsSnapshot{
		Live:           s.live.Load(),
		Cache:          s.cache.Load(),
		Fallback:       s.fallback.Load(),
		Denied:         s.denied.Load(),
		Reports:        s.reports.Load(),
		Attempts:       s.attempts.Load(),
		FailedAttempts: s.failedAttempts.Load(),
	}
	count := s.fetches.Load()
	if count == 0 {
		return out
	}
	minv := s.minFetchNs.Load()
	if minv == math.MaxUint64 {
		minv = 0
	}
	out.Fetches = count
	out.MinFetch = time.Duration(minv)
	out.AvgFetch = time.Duration(s.totalFetchNs.Load() / count)
	out.MaxFetch = time.Duration(s.maxFetchNs.Load())
	return out
}

// ObserveAttempt is the upstream.Client observer hook.
func (o *Orchestrator) ObserveAttempt(a upstream.Attempt) {
	o.stats.attempts.Add(1)
	if a.Err != nil {
		o.stats.failedAttempts.Add(1)
	}
}

func (o *Orchestrator) statsLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-o.stopCh:
			return
		case <-t.C:
			ss := o.stats.Snapshot()
			gs := o.deps.Governor.Status()
			var disk uint64
			if o.deps.DiskUsage != nil {
				disk = uint64(max(o.deps.DiskUsage(), 0))
			}
			rss := "n/a"
			if b, ok := processRSSBytes(); ok {
				rss = formatBytes(b)
			}
			log.Printf(
				"Served: live %d, cache %d, fallback %d, denied %d; Cache: entries %d, disk usage %s; RSS %s; Fetch min/avg/max %s/%s/%s; Attempts %d (%d failed)",
				ss.Live, ss.Cache, ss.Fallback, ss.Denied,
				gs.CacheEntries,
				formatBytes(disk),
				rss,
				ss.MinFetch.Round(time.Millisecond),
				ss.AvgFetch.Round(time.Millisecond),
				ss.MaxFetch.Round(time.Millisecond),
				ss.Attempts, ss.FailedAttempts,
			)
		}
	}
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	if b < kb {
		return fmt.Sprintf("%db", b)
	}
	if b < mb {
		return trimFloat(fmt.Sprintf("%.1f", float64(b)/kb)) + "kb"
	}
	if b < gb {
		return trimFloat(fmt.Sprintf("%.1f", float64(b)/mb)) + "mb"
	}
	return trimFloat(fmt.Sprintf("%.1f", float64(b)/gb)) + "gb"
}

func trimFloat(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	return s
}
