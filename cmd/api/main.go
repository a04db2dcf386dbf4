package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/silverflax/bgg-gg/internal/cache"
	"github.com/silverflax/bgg-gg/internal/catalog"
	"github.com/silverflax/bgg-gg/internal/collection"
	"github.com/silverflax/bgg-gg/internal/config"
	"github.com/silverflax/bgg-gg/internal/events"
	"github.com/silverflax/bgg-gg/internal/httpserver"
)

// main boots the service: config → stores → sweepers → HTTP server.
func main() {
	// Signal-aware context owns the background sweepers; SIGINT/SIGTERM
	// stops them cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// File-backed collection cache with TTL and size eviction.
	fc, err := cache.New(cache.Options{
		Dir:           cfg.CacheDir,
		MaxTotalBytes: cfg.CacheMaxBytes,
		TTL:           cfg.CacheTTL,
		MaxEntryAge:   cfg.CacheMaxAge,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer fc.Close()

	// Event store, one JSON file per event.
	st, err := events.NewStore(cfg.EventsDir, cfg.EventMaxAge)
	if err != nil {
		log.Fatal(err)
	}

	// Periodic sweeps: cache TTL/size and event expiry, each on its own
	// timer, both run once at startup.
	go cache.NewSweeper(fc, cfg.SweepInterval).Start(ctx)
	go events.NewSweeper(st, cfg.SweepInterval).Start(ctx)

	// Catalog client and cache-backed collection service.
	client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogMinDelay)
	engine := collection.NewSyncEngine(fc, client)
	svc := collection.NewService(fc, engine)

	router := httpserver.NewRouter(svc, st, fc)

	log.Printf("server started on %s", cfg.ListenAddr)
	log.Fatal(router.Run(cfg.ListenAddr))
}
