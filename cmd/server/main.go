package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"vulnreport/internal/activity"
	audithandler "vulnreport/internal/audit/handler"
	auditmetrics "vulnreport/internal/audit/metrics"
	"vulnreport/internal/audit/service"
	"vulnreport/internal/audit/store"
	"vulnreport/internal/audit/store/memory"
	auditpg "vulnreport/internal/audit/store/postgres"
	httpapi "vulnreport/internal/http"
	"vulnreport/internal/notify"
	"vulnreport/internal/platform/config"
	"vulnreport/internal/platform/httpserver"
	"vulnreport/internal/platform/logger"
	platformmetrics "vulnreport/internal/platform/metrics"
	"vulnreport/internal/platform/postgres"
	platformredis "vulnreport/internal/platform/redis"
	"vulnreport/internal/platform/token"
	"vulnreport/internal/report"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkers := map[string]httpapi.HealthChecker{}

	var auditStore store.Store
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		pgStore := auditpg.New(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		auditStore = pgStore
		checkers["postgres"] = poolHealth{pool}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		auditStore = memory.New()
	}

	var notifier notify.Notifier = notify.Noop{}
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		notifier = notify.NewRedisNotifier(redisClient.Client, log)
		checkers["redis"] = redisClient
	} else {
		log.Warn("REDIS_URL not set, change notifications disabled")
	}

	var trail activity.Publisher = activity.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaTrail, err := activity.NewKafkaPublisher(cfg.KafkaBrokers, cfg.ActivityTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaTrail.Close()
		trail = kafkaTrail
	}

	metrics := auditmetrics.New()
	httpMetrics := platformmetrics.NewHTTP()
	audits := service.New(auditStore, notifier, trail, metrics, log)

	renderer := report.NewHTTPRenderer(cfg.RendererURL, cfg.RendererTimeout)
	reports := report.NewBridge(audits, renderer, metrics)

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)
	handler := audithandler.New(audits, reports, tokens, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:      log,
		Audits:      handler,
		HTTPMetrics: httpMetrics,
		Checkers:    checkers,
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting vulnreport", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// poolHealth adapts the pgx pool to the readiness checker interface.
type poolHealth struct {
	pool *pgxpool.Pool
}

func (p poolHealth) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
