package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/marketbid/auction-backend/internal/api/rest"
	"github.com/marketbid/auction-backend/internal/api/websocket"
	"github.com/marketbid/auction-backend/internal/infrastructure/cache"
	"github.com/marketbid/auction-backend/internal/infrastructure/config"
	"github.com/marketbid/auction-backend/internal/infrastructure/repository"
	"github.com/marketbid/auction-backend/internal/infrastructure/telemetry"
	"github.com/marketbid/auction-backend/internal/metrics"
	"github.com/marketbid/auction-backend/internal/service/auction"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, &telemetry.Config{
		ServiceName:    "auction-backend",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown", "error", err)
		}
	}()

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing zap logger: %w", err)
	}
	defer zapLogger.Sync()

	var (
		projects auction.ProjectRepository
		auctions auction.AuctionRepository
		bids     auction.BidRepository
		store    rest.ProjectStore
	)
	if cfg.Database.URL != "" {
		db, err := repository.Connect(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer db.Close()

		pr := repository.NewProjectRepository(db)
		projects, store = pr, pr
		auctions = repository.NewAuctionRepository(db)
		bids = repository.NewBidRepository(db)
		logger.Info("using postgres repositories")
	} else {
		pr := repository.NewMemoryProjectRepository()
		projects, store = pr, pr
		auctions = repository.NewMemoryAuctionRepository()
		bids = repository.NewMemoryBidRepository()
		logger.Warn("no database configured, using in-memory repositories")
	}

	registry := metrics.NewRegistry()

	hub := websocket.NewHub(zapLogger)
	hub.SetObserver(registry)
	go hub.Run(ctx)

	engine := auction.NewEngine(projects, auctions, bids, hub, registry, logger, auction.Config{
		SubmitRatePerMinute: cfg.Auction.SubmitRatePerMinute,
		SubmitBurst:         cfg.Auction.SubmitBurst,
	})

	var (
		snapshots     rest.SnapshotCache
		snapshotCache *cache.SnapshotCache
	)
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(&cfg.Redis, zapLogger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisCache.Close()
		snapshotCache = cache.NewSnapshotCache(redisCache, zapLogger, cfg.Redis.TTL)
		snapshots = snapshotCache
		logger.Info("live-state snapshot cache enabled", "ttl", cfg.Redis.TTL)
	}

	scheduler := auction.NewScheduler(engine, logger, cfg.Auction.SweepInterval)
	if snapshotCache != nil {
		scheduler.SetInvalidator(snapshotCache)
	}
	go scheduler.Run(ctx)

	handler := rest.NewHandler(engine, store, snapshots, logger)
	server := rest.NewServer(&cfg.Server, handler, logger, rest.ServerOptions{
		WS:             hub,
		Metrics:        registry,
		MetricsHandler: registry.Handler(),
		Tracer:         telemetry.Tracer("http"),
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	logger.Info("starting auction backend",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	err = server.Start(ctx)
	hub.Stop()
	return err
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
