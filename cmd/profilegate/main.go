package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profilegate/internal/cache"
	"profilegate/internal/config"
	"profilegate/internal/fallback"
	"profilegate/internal/governor"
	"profilegate/internal/httpapi"
	"profilegate/internal/narrative"
	"profilegate/internal/orchestrator"
	"profilegate/internal/report"
	"profilegate/internal/state"
	"profilegate/internal/upstream"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", getenvDefault("PROFILEGATE_CONFIG", "/profilegate.yaml"), "path to profilegate.yaml")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := state.Open(cfg)
	if err != nil {
		log.Fatalf("open state: %v", err)
	}
	defer store.Close()

	cacheOpts := []cache.Option{cache.WithMaxEntries(cfg.Cache.MaxEntries)}
	var disk *cache.DiskStore
	if cfg.Cache.Disk.Path != "" {
		disk, err = cache.OpenDisk(cfg.Cache.Disk.Path, cfg.Cache.Disk.MaxBytes)
		if err != nil {
			log.Fatalf("open cache disk: %v", err)
		}
		cacheOpts = append(cacheOpts, cache.WithDisk(disk))
	}
	results := cache.New(cfg.Cache.Duration.Std(), cacheOpts...)
	defer results.Close()

	// The orchestrator does not exist yet while the client logs in; attempts
	// are counted once it does.
	var orch *orchestrator.Orchestrator
	client, err := newClient(ctx, cfg, store, func(a upstream.Attempt) {
		if orch != nil {
			orch.ObserveAttempt(a)
		}
	})
	if err != nil {
		if !cfg.Upstream.DegradedStart {
			log.Fatalf("init upstream: %v", err)
		}
		log.Printf("upstream: %v; starting degraded, serving cache and sample data only", err)
	}

	govOpts := []governor.Option{governor.WithBlockStore(store)}
	if client != nil {
		govOpts = append(govOpts, governor.WithUpstream(client))
	}
	gov := governor.New(cfg.Governor.MinInterval.Std(), results, govOpts...)
	if err := gov.Restore(ctx); err != nil {
		log.Printf("governor: restore global block: %v", err)
	}

	var fbOpts []fallback.Option
	if cfg.Fallback.Deterministic {
		fbOpts = append(fbOpts, fallback.WithDeterministic())
	}

	narr := narrative.Resilient{}
	if cfg.Narrative.Endpoint != "" && cfg.Narrative.APIKey != "" {
		narr.Primary = narrative.NewChatGenerator(cfg.Narrative.Endpoint, cfg.Narrative.APIKey, cfg.Narrative.Model, cfg.Narrative.Timeout.Std())
		log.Printf("narrative: using %s (%s)", cfg.Narrative.Endpoint, cfg.Narrative.Model)
	} else {
		log.Printf("narrative: no endpoint configured, using rule-based sections")
	}

	deps := orchestrator.Deps{
		Governor: gov,
		Fallback: fallback.New(fbOpts...),
		Narrator: narr,
		Renderer: report.New(cfg.Report.Dir),
	}
	if client != nil {
		deps.Fetcher = client
	}
	if disk != nil {
		deps.DiskUsage = disk.TotalSize
	}
	orch = orchestrator.New(deps, orchestrator.Config{
		RateLimitBlock: cfg.Governor.RateLimitBlock.Std(),
		AccessBlock:    cfg.Governor.AccessBlock.Std(),
		LogStatsEvery:  cfg.Logging.LogStatsEvery.Std(),
	})
	defer orch.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen %s: %v", addr, err)
	}

	srv := &http.Server{
		Handler:           httpapi.New(orch, cfg.Server.AllowedOrigins, cfg.Server.RequestTimeout.Std()).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("profilegate listening on %s, upstream=%s, upstream enabled=%t", addr, cfg.Upstream.BaseURL, orch.UpstreamEnabled())
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newClient(ctx context.Context, cfg config.Config, store upstream.SessionStore, observe func(upstream.Attempt)) (*upstream.Client, error) {
	u := cfg.Upstream
	src := upstream.NewHTTPSource(u.BaseURL, u.UserAgent, u.Timeout.Std())
	return upstream.New(ctx, src, upstream.Config{
		Credentials:      upstream.Credentials{Username: u.Username, Password: u.Password},
		MaxAttempts:      u.MaxAttempts,
		MaxItems:         u.MaxItems,
		SessionMaxAge:    u.SessionMaxAge.Std(),
		HumanDelay:       upstream.Range{Min: u.HumanDelay.Min.Std(), Max: u.HumanDelay.Max.Std()},
		ItemDelay:        upstream.Range{Min: u.ItemDelay.Min.Std(), Max: u.ItemDelay.Max.Std()},
		BackoffFloor:     u.Backoff.Floor.Std(),
		BackoffCeiling:   u.Backoff.Ceiling.Std(),
		UnauthorizedWait: u.UnauthorizedWait.Std(),
	},
		upstream.WithSessionStore(store),
		upstream.WithObserver(observe),
	)
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
