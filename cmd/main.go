// vibe-barter discovery service
//
// Ranks and filters the advertisement catalog into personalized, paginated
// result sets. Exposes over HTTP:
//   - search(query, options)            — declarative multi-field filtering
//   - getRecommendations(viewer, opts)  — multi-factor relevance ranking
//   - invalidateViewerCache(viewer)     — called on preference updates
//   - recordInteraction                 — behavioral signal write path
//
// The result cache lives in Redis with a fixed TTL; a cron job keeps the
// denormalized search blobs in sync.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wannasleep66/vibe-barter-sub001/internal/cache"
	"github.com/wannasleep66/vibe-barter-sub001/internal/category"
	"github.com/wannasleep66/vibe-barter-sub001/internal/config"
	"github.com/wannasleep66/vibe-barter-sub001/internal/db"
	"github.com/wannasleep66/vibe-barter-sub001/internal/discovery"
	"github.com/wannasleep66/vibe-barter-sub001/internal/rank"
	"github.com/wannasleep66/vibe-barter-sub001/internal/scheduler"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store/memstore"
	"github.com/wannasleep66/vibe-barter-sub001/internal/store/postgres"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[discovery-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Stores + cache ───────────────────────────────────────────────────────
	var (
		listings     store.ListingStore
		profiles     store.ProfileStore
		prefs        store.PreferenceStore
		interactions store.InteractionStore
		categories   store.CategoryStore
		resultCache  cache.ResultCache
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Println("[discovery-service] Using in-memory store (no persistence)")
		mem := memstore.New(nil)
		listings, profiles, prefs, interactions, categories = mem, mem, mem, mem, mem
		resultCache = cache.NewMemoryCache(nil)
	default:
		log.Println("[discovery-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[discovery-service] PostgreSQL: %v", err)
		}
		defer pool.Close()
		log.Println("[discovery-service] PostgreSQL connected ✓")

		log.Println("[discovery-service] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[discovery-service] Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("[discovery-service] Redis connected ✓")

		listings = postgres.NewListingStore(pool)
		profiles = postgres.NewProfileStore(pool)
		prefs = postgres.NewPreferenceStore(pool)
		interactions = postgres.NewInteractionStore(pool)
		categories = postgres.NewCategoryStore(pool)
		resultCache = cache.NewRedisCache(rdb)
	}
	// ── Engine + service ─────────────────────────────────────────────────────
	resolver := category.NewResolver(categories)
	engine := rank.NewEngine(listings, prefs, interactions,
		cfg.HistoryLookbackDays, cfg.HistoryMaxRecords, nil)
	svc := discovery.NewService(listings, profiles, interactions, prefs, resolver,
		engine, resultCache, time.Duration(cfg.CacheTTLSeconds)*time.Second, nil)

	// ── Blob resync cron ─────────────────────────────────────────────────────
	sched := scheduler.New(listings, cfg.BlobResyncIntervalHours)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[discovery-service] Scheduler: %v", err)
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/health", healthHandler)

	discovery.NewHandler(svc).RegisterRoutes(r)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[discovery-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[discovery-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[discovery-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[discovery-service] Shutdown error: %v", err)
	}
	log.Println("[discovery-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "discovery-service",
		"version": version,
	})
}
