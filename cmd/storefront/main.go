package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/archsaint/storefront/internal/adapter/cloudinary"
	"github.com/archsaint/storefront/internal/adapter/email"
	sfhttp "github.com/archsaint/storefront/internal/adapter/http"
	sfnats "github.com/archsaint/storefront/internal/adapter/nats"
	"github.com/archsaint/storefront/internal/adapter/otel"
	"github.com/archsaint/storefront/internal/adapter/postgres"
	"github.com/archsaint/storefront/internal/adapter/redis"
	"github.com/archsaint/storefront/internal/adapter/ristretto"
	"github.com/archsaint/storefront/internal/adapter/tiered"
	"github.com/archsaint/storefront/internal/config"
	"github.com/archsaint/storefront/internal/domain/order"
	"github.com/archsaint/storefront/internal/domain/product"
	"github.com/archsaint/storefront/internal/logger"
	"github.com/archsaint/storefront/internal/service"
	"github.com/archsaint/storefront/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLogger.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// Cache: ristretto in-process L1 over redis L2.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("ristretto: %w", err)
	}
	defer l1.Close()

	l2 := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.OpTimeout)
	defer func() { _ = l2.Close() }()
	if err := l2.Ping(ctx); err != nil {
		// The cache layer degrades to misses when redis is unavailable;
		// the service still starts.
		slog.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err)
	}
	cacheStore := tiered.New(l1, l2, cfg.Cache.ListingTTL)

	// NATS JetStream
	queue, err := sfnats.Connect(ctx, cfg.NATS.URL, cfg.NATS.MaxDeliver, cfg.NATS.RetryDelay)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()
	slog.Info("nats connected")

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool, cfg.Postgres.TxTimeout, cfg.Postgres.LockTimeout)

	orderCache := service.NewEntityCache[order.Order]("order", cacheStore, cfg.Cache.SingleTTL, cfg.Cache.ListingTTL)
	productCache := service.NewEntityCache[product.Product]("product", cacheStore, cfg.Cache.SingleTTL, cfg.Cache.ListingTTL)

	effects := service.NewSideEffects(orderCache, queue, metrics)
	orderSvc := service.NewOrderService(store, orderCache, effects, metrics)
	productSvc := service.NewProductService(store, productCache, cloudinary.New(cfg.Uploads), effects, cfg.Uploads.Folder)
	authSvc := service.NewAuthService(store, cfg.Auth)

	// --- Workers ---

	emailWorker := worker.NewEmailWorker(queue, email.New(cfg.SMTP))
	if err := emailWorker.Start(ctx); err != nil {
		return fmt.Errorf("email worker: %w", err)
	}
	defer emailWorker.Stop()

	cleanupWorker := worker.NewFileCleanupWorker(queue)
	if err := cleanupWorker.Start(ctx); err != nil {
		return fmt.Errorf("file cleanup worker: %w", err)
	}
	defer cleanupWorker.Stop()

	// --- HTTP ---

	handlers := &sfhttp.Handlers{
		Orders:   orderSvc,
		Products: productSvc,
		Auth:     authSvc,
		Queue:    queue,
		DB:       pool,
		Cache:    l2,
		TempDir:  cfg.Uploads.TempDir,
	}

	r := chi.NewRouter()
	r.Use(sfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(sfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", handlers.Health)
	sfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(r, "storefront"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return queue.Drain()
}
