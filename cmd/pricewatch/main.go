package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricewatch/internal/application/port"
	"pricewatch/internal/application/usecase/aggregator"
	"pricewatch/internal/infrastructure/config"
	"pricewatch/internal/infrastructure/exchange/binance"
	"pricewatch/internal/infrastructure/logger"
	"pricewatch/internal/infrastructure/storage/composite"
	"pricewatch/internal/infrastructure/storage/postgres"
	"pricewatch/internal/infrastructure/storage/sqlite"

	redisrepo "pricewatch/internal/infrastructure/storage/redis"
	"pricewatch/internal/interfaces/console"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.SetLevel(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := buildRepo(cfg)
	defer func() { _ = repo.Close() }()

	svc := aggregator.NewService(aggregator.ServiceDeps{
		Catalog:       aggregator.NewCatalog(binance.NewExchangeInfoClient(cfg.Binance.RestURL), cfg.Symbols.Quote),
		Snapshots:     binance.NewTickerClient(cfg.Binance.RestURL, cfg.Symbols.Quote),
		Stream:        binance.NewTickerStream(cfg.Binance.WsURL, cfg.Symbols.Quote),
		Repo:          repo,
		Sink:          console.NewSink(),
		MaxStreams:    cfg.Binance.MaxStreamsPerConn,
		SnapshotEvery: time.Duration(cfg.App.SnapshotEveryMin) * time.Minute,
	})

	log.Info().
		Str("config", *configPath).
		Int("symbols", len(cfg.Symbols.List)).
		Str("quote", cfg.Symbols.Quote).
		Int("max_streams", cfg.Binance.MaxStreamsPerConn).
		Msg("pricewatch started")

	if err := svc.Run(ctx, cfg.Symbols.List); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("aggregator exited")
	}
}

func buildRepo(cfg *config.Config) port.Repository {
	var repos []port.Repository

	if cfg.HasBackend("sqlite") {
		r, err := sqlite.New(cfg.Storage.SqlitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.SqlitePath).Msg("sqlite open failed")
		}
		repos = append(repos, r)
	}
	if cfg.HasBackend("postgres") {
		r, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open failed")
		}
		repos = append(repos, r)
	}
	if cfg.HasBackend("redis") {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Storage.RedisAddr})
		repos = append(repos, redisrepo.New(rdb, cfg.Storage.RedisPrefix,
			time.Duration(cfg.Storage.RedisTTLSec)*time.Second))
	}

	switch len(repos) {
	case 0:
		return aggregator.NewNoopRepo()
	case 1:
		return repos[0]
	default:
		return composite.New(repos...)
	}
}
