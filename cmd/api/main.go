// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/cb671/streetsafe-server/internal/adapter/cache"
	"github.com/cb671/streetsafe-server/internal/adapter/events"
	"github.com/cb671/streetsafe-server/internal/adapter/h3index"
	"github.com/cb671/streetsafe-server/internal/adapter/nominatim"
	"github.com/cb671/streetsafe-server/internal/adapter/storage"
	"github.com/cb671/streetsafe-server/internal/config"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/server"
	"github.com/cb671/streetsafe-server/internal/service/aggregate"
	geoService "github.com/cb671/streetsafe-server/internal/service/geo"
	"github.com/cb671/streetsafe-server/internal/service/proximity"
	"github.com/cb671/streetsafe-server/internal/service/relevance"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, log)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	var publisher events.Publisher = events.Nop{}
	feedSubject := ""
	if natsConn != nil {
		p := events.NewNATSPublisher(natsConn, cfg.NATS.SubjectPrefix)
		publisher = p
		feedSubject = p.Subject(events.SubjectMapFeaturesComputed)
	}

	redisClient := cache.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unavailable, location names will not be cached")
		}
		defer redisClient.Close()
	}

	// Initialize storage adapters
	incidentStore := storage.NewIncidentStore(db)
	facilityStore := storage.NewFacilityStore(db)
	resourceStore := storage.NewResourceStore(db)

	// Initialize geo services
	index := h3index.New()
	geocoder := nominatim.NewClient(&http.Client{Timeout: cfg.Geocoder.Timeout}, nominatim.Config{
		BaseURL:     cfg.Geocoder.BaseURL,
		UserAgent:   cfg.Geocoder.UserAgent,
		Timeout:     cfg.Geocoder.Timeout,
		MinInterval: cfg.Geocoder.MinInterval,
	})

	resolver := geoService.NewLocationResolver(geocoder, incidentStore, index, geoService.ResolverConfig{
		DefaultResolution: cfg.Engine.Resolution,
	})
	radius := geoService.NewRadiusConverter(index, geoService.RadiusConfig{
		DefaultHops: cfg.Engine.DefaultHops,
		MaxHops:     cfg.Engine.MaxHops,
	})

	var nameCache geoService.NameCache
	if redisClient != nil {
		nameCache = cache.NewNameCache(redisClient, cfg.Redis.NameTTL)
	}
	namer := geoService.NewLocationNamer(geocoder, index, nameCache, geoService.NamerConfig{
		Concurrency: cfg.Engine.NamerConcurrency,
	})

	// Initialize domain services
	locator := proximity.NewLocator(facilityStore, index, cfg.Engine.Resolution)

	crimes := aggregate.NewService(incidentStore, resolver, radius, namer, locator, publisher, aggregate.Config{
		Resolution:      cfg.Engine.Resolution,
		DefaultMapStart: cfg.Engine.DefaultMapStart,
		LocationLimit:   cfg.Engine.LocationLimit,
		CacheCapacity:   cfg.Engine.MapCacheCapacity,
		CacheTTL:        cfg.Engine.MapCacheTTL,
	})

	warmer := aggregate.NewWarmer(crimes, aggregate.WarmerConfig{Interval: cfg.Engine.MapWarmInterval})
	warmer.Start(ctx)

	ranker := relevance.NewRanker(incidentStore, resourceStore, relevance.Config{
		Resolution: cfg.Engine.Resolution,
		Window:     cfg.Engine.RelevanceWindow,
		TopN:       cfg.Engine.RelevanceTopN,
	})

	// Initialize HTTP server
	httpServer := server.NewServer(cfg.Server, server.Dependencies{
		Crimes:      crimes,
		Locator:     locator,
		Resources:   resourceStore,
		Ranker:      ranker,
		Namer:       namer,
		NATSConn:    natsConn,
		FeedSubject: feedSubject,
		Graphs: server.GraphDefaults{
			StartDate: cfg.Engine.DefaultStartDate,
			RadiusKm:  cfg.Engine.DefaultRadiusKm,
			GroupBy:   cfg.Engine.DefaultTrendGroup,
		},
	})

	// Start HTTP server
	go func() {
		log.Infof("Starting HTTP server on %s", cfg.Server.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Info("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := warmer.Stop(shutdownCtx); err != nil {
		log.Errorf("Cache warmer shutdown error: %v", err)
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			log.Errorf("NATS drain error: %v", err)
		}
	}

	log.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection. No URL means events are disabled.
func initNATS(cfg config.NATSConfig, log logrus.FieldLogger) (*nats.Conn, error) {
	if cfg.URL == "" {
		log.Info("NATS_URL not set, events disabled")
		return nil, nil
	}

	options := []nats.Option{
		nats.Name("streetsafe-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
