package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/storage/redis/v3"

	"kwtrack/internal/cache"
	"kwtrack/internal/config"
	"kwtrack/internal/db"
	"kwtrack/internal/jobs"
	"kwtrack/internal/metrics"
	"kwtrack/internal/server"
	"kwtrack/internal/tracking"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	yamlCfg, err := config.LoadYAMLConfig(cfg.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", cfg.ConfigFile, err)
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	if yamlCfg != nil {
		for _, p := range yamlCfg.Projects {
			if _, err := database.SeedProject(ctx, p.Slug, p.Name, p.Keywords); err != nil {
				log.Fatalf("Failed to seed projects: %v", err)
			}
		}
		log.Printf("Seeded %d projects from %s", len(yamlCfg.Projects), cfg.ConfigFile)
	}

	// Redis backs the shared result cache tier, sessions and rate limiting
	var storage fiber.Storage
	var cacheOpts []cache.Option
	if cfg.IsSharedCacheEnabled() {
		redisStorage := redis.New(redis.Config{URL: cfg.RedisURL})
		defer redisStorage.Close()
		storage = redisStorage
		cacheOpts = append(cacheOpts, cache.WithRemote(redisStorage))
		log.Println("Shared cache enabled (redis)")
	}

	resultCache, err := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL, cacheOpts...)
	if err != nil {
		log.Fatalf("Failed to create result cache: %v", err)
	}

	metrics.Init(database, resultCache.Len)

	accessor := tracking.NewAccessor(database, cfg.QueryPageSize)
	planner := tracking.NewPlanner(accessor, database, resultCache, tracking.Options{
		MaxAge:         cfg.AggregationMaxAge,
		Precision:      cfg.AggregationPrecision,
		ComputeTimeout: cfg.ComputeTimeout,
		OnOutcome:      metrics.RecordAggregation,
		OnCompute:      metrics.ObserveCompute,
	})
	defer planner.Close()

	srv := server.New(cfg, storage)
	if err := srv.RegisterRoutes(ctx, server.Deps{
		Projects:     database,
		Observations: accessor,
		Aggregator:   planner,
		Database:     database,
		SharedCache:  resultCache.Shared(),
	}); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	if cfg.EnableRollups {
		if rollups := yamlCfg.GetRollups(); len(rollups) > 0 {
			refresher := jobs.NewRollupRefresher(database, planner, rollups, cfg.RollupInterval)
			go refresher.Start(ctx)
		} else {
			log.Println("ENABLE_ROLLUPS is set but no rollups are configured")
		}
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Println("Shutting down server...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
