package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/audit"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/cache"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/metrics"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/service"
	banstore "github.com/matiasgallardo196/multiPlatformVenue-back/internal/ban/store"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/directory"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/platform/config"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/platform/httpserver"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/platform/logger"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/platform/postgres"
	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/platform/redisclient"
	transport "github.com/matiasgallardo196/multiPlatformVenue-back/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	banMetrics := metrics.New(registry)

	var st banstore.Store
	var dir directory.Store
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		st = banstore.NewPostgres(db)
		dir = directory.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		st = banstore.NewInMemory()
		dir = directory.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	publisher := audit.NewPublisher(256, log)
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events go to kafka", "topic", cfg.AuditTopic)
	} else {
		sink = audit.NewInMemorySink()
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(banMetrics),
		service.WithAuditPublisher(publisher),
	}
	if cfg.RedisURL != "" {
		redisCli, err := redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisCli.Close()
		opts = append(opts, service.WithSummaryCache(cache.NewSummary(redisCli, cfg.SummaryTTL)))
		log.Info("dashboard summary cached in redis", "ttl", cfg.SummaryTTL)
	}
	svc := service.New(st, dir, opts...)

	handler := transport.NewHandler(svc, log)
	api := httpserver.New(cfg.Addr, handler.Router([]byte(cfg.JWTSigningKey)))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := httpserver.New(cfg.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", "addr", cfg.Addr)
		return api.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
		return metricsSrv.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		worker := audit.NewWorker(sink, publisher.Inbox(), log)
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return err
	}
	log.Info("server stopped")
	return nil
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
