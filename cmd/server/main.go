package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/neexbeast/coffeemap/internal/api"
	"github.com/neexbeast/coffeemap/internal/cache"
	"github.com/neexbeast/coffeemap/internal/config"
	"github.com/neexbeast/coffeemap/internal/lookup"
	"github.com/neexbeast/coffeemap/internal/places"
	"github.com/neexbeast/coffeemap/internal/storage"
	"github.com/neexbeast/coffeemap/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	level, _ := cfg.Log.SlogLevel()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL, cfg.Cache.OpTimeout)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	// Wire dependencies.
	cacheLayer := cache.NewCache(redisClient, log, cache.WithOpTimeout(cfg.Cache.OpTimeout))
	providers, breakers := buildProviders(cfg, log)
	shops := lookup.NewService(cacheLayer, providers, cfg.Cache.TTL, log)
	repo := storage.NewRepository(pool)
	handlers := api.NewHandlers(shops, repo, log)

	health := api.HealthHandlerFunc(pool, cacheLayer, breakers, log)
	router := api.NewRouter(handlers, health, api.RouterConfig{
		JWTSecret:     []byte(cfg.Auth.JWTSecret),
		JWTIssuer:     cfg.Auth.Issuer,
		RatePerMinute: cfg.Server.RateLimit,
	})

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Server.Port, "nearby_provider", cfg.Places.NearbyProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// buildProviders constructs the upstream clients, each behind its own circuit
// breaker, and returns the breakers keyed by name for the health check.
func buildProviders(cfg *config.Config, log *slog.Logger) (lookup.Providers, map[string]api.BreakerState) {
	settings := places.BreakerSettings{
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		HalfOpenMax:  cfg.Breaker.HalfOpenMax,
	}
	timeout := cfg.HTTP.Timeout

	var nearby *places.GuardedNearby
	switch cfg.Places.NearbyProvider {
	case config.NearbySerpAPI:
		client := places.NewSerpNearbyClientWithURL(cfg.SerpAPI.URL, cfg.SerpAPI.APIKey, cfg.Places.Keyword, timeout)
		nearby = places.GuardNearby("nearby-serpapi", places.ProviderSerpAPI, client, settings, log)
	case config.NearbyOverpass:
		client := places.NewOverpassClientWithURL(cfg.Overpass.URL, cfg.Places.Radius, cfg.Places.UserAgent, timeout)
		nearby = places.GuardNearby("nearby-overpass", places.ProviderOSM, client, settings, log)
	default:
		client := places.NewGoogleNearbyClientWithURL(cfg.Google.URL, cfg.Google.APIKey, cfg.Places.Radius, cfg.Places.Keyword, timeout)
		nearby = places.GuardNearby("nearby-google", places.ProviderGoogle, client, settings, log)
	}

	googleDetail := places.NewGoogleDetailClientWithURL(cfg.Google.URL, cfg.Google.APIKey, timeout)
	googleGuard := places.GuardDetail("detail-google", places.ProviderGoogle, googleDetail, settings, log)
	osmGuard := places.GuardDetail("detail-overpass", places.ProviderOSM,
		places.NewOverpassClientWithURL(cfg.Overpass.URL, cfg.Places.Radius, cfg.Places.UserAgent, timeout), settings, log)
	photos := places.GuardPhoto("photo-google", places.ProviderGoogle, googleDetail, settings, log)
	geocoder := places.GuardGeocoder("geocode-nominatim", places.ProviderNominatim,
		places.NewNominatimClientWithURL(cfg.Nominatim.URL, cfg.Places.UserAgent, timeout), settings, log)

	breakers := map[string]api.BreakerState{
		nearby.Name():      nearby,
		googleGuard.Name(): googleGuard,
		osmGuard.Name():    osmGuard,
		photos.Name():      photos,
		geocoder.Name():    geocoder,
	}
	return lookup.Providers{
		Nearby:   nearby,
		Detail:   places.RouteDetail(googleGuard, osmGuard),
		Geocoder: geocoder,
		Photos:   photos,
	}, breakers
}
