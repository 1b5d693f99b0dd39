package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/counseling-clinic/cmd/mainconfig"
	"github.com/wolfman30/counseling-clinic/internal/api/router"
	"github.com/wolfman30/counseling-clinic/internal/app/bootstrap"
	"github.com/wolfman30/counseling-clinic/internal/appointments"
	"github.com/wolfman30/counseling-clinic/internal/assignments"
	"github.com/wolfman30/counseling-clinic/internal/attachments"
	"github.com/wolfman30/counseling-clinic/internal/cashregister"
	appconfig "github.com/wolfman30/counseling-clinic/internal/config"
	"github.com/wolfman30/counseling-clinic/internal/dashboard"
	"github.com/wolfman30/counseling-clinic/internal/directory"
	"github.com/wolfman30/counseling-clinic/internal/meet"
	"github.com/wolfman30/counseling-clinic/internal/notify"
	"github.com/wolfman30/counseling-clinic/internal/observability/metrics"
	"github.com/wolfman30/counseling-clinic/internal/packages"
	"github.com/wolfman30/counseling-clinic/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.ClinicTimezone,
		"overlap_mode", cfg.BookingOverlapMode,
	)

	if strings.TrimSpace(cfg.AuthJWTSecret) == "" {
		logger.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	var pool *pgxpool.Pool
	if !cfg.UseMemoryStore {
		pool = connectPostgresPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, logger)
		if pool == nil {
			logger.Error("postgres is required unless USE_MEMORY_STORE=true")
			os.Exit(1)
		}
		defer pool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	stores, err := bootstrap.BuildStores(cfg, pool, redisClient, logger)
	if err != nil {
		logger.Error("failed to build stores", "error", err)
		os.Exit(1)
	}

	files, err := setupAttachments(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure attachment storage", "error", err)
		os.Exit(1)
	}

	metricsHandler, bookingMetrics := setupMetrics()

	routerCfg := buildRouterConfig(cfg, stores, files, bookingMetrics, logger)
	routerCfg.MetricsHandler = metricsHandler
	routerCfg.HealthChecks = healthChecks(pool, redisClient)
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// connectPostgresPool returns nil when no URL is configured or the database is unreachable.
func connectPostgresPool(ctx context.Context, databaseURL string, maxConns int, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		logger.Error("invalid DATABASE_URL", "error", err)
		return nil
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(connectCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres", "max_conns", poolCfg.MaxConns)
	return pool
}

// setupMetrics builds a dedicated registry so tests and the process never share global state.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(reg)
}

// setupAttachments returns a disabled store when no bucket is configured.
func setupAttachments(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*attachments.Store, error) {
	opts := attachments.Options{
		Bucket: cfg.AttachmentsBucket,
		Prefix: cfg.AttachmentsPrefix,
		URLTTL: cfg.AttachmentURLTTL,
		Logger: logger,
	}
	if strings.TrimSpace(cfg.AttachmentsBucket) == "" {
		logger.Warn("ATTACHMENTS_BUCKET not set; assignment uploads disabled")
		return attachments.NewStore(nil, nil, opts), nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	logger.Info("attachment storage enabled", "bucket", cfg.AttachmentsBucket, "prefix", cfg.AttachmentsPrefix)
	return attachments.NewS3Store(mainconfig.NewS3Client(awsCfg, cfg), opts), nil
}

func buildRouterConfig(cfg *appconfig.Config, stores *bootstrap.Stores, files *attachments.Store, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *router.Config {
	loc := cfg.ClinicLocation()

	apptSvc := appointments.NewService(stores.Appointments, appointments.Options{
		Directory:       stores.Directory,
		Meet:            meet.NewGenerator(cfg.MeetDomain),
		Notify:          notify.NewComposer(cfg.WhatsAppBaseURL, loc),
		Metrics:         bookingMetrics,
		Location:        loc,
		DefaultDuration: cfg.DefaultDurationMinutes,
		OverlapMode:     appointments.ParseOverlapMode(cfg.BookingOverlapMode),
		Logger:          logger,
	})
	cashSvc := cashregister.NewService(stores.CashRegister, stores.Directory, stores.Appointments, loc, logger)
	statsSvc := dashboard.NewService(stores.Stats, stores.Directory, loc)
	assignSvc := assignments.NewService(stores.Assignments, stores.Directory, files, loc, logger)
	manager := directory.NewManager(stores.Directory, logger, stores.ReferenceChecks()...)
	packageSvc := packages.NewService(stores.Packages, stores.Directory, logger)

	return &router.Config{
		Logger:             logger,
		AuthSecret:         cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		BookingRateLimit: router.RateLimit{
			RPS:   cfg.BookingRateLimitRPS,
			Burst: cfg.BookingRateLimitBurst,
		},
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Appointments:   appointments.NewHandler(apptSvc, logger),
		Directory:      directory.NewHandler(manager, logger),
		Dashboard:      dashboard.NewStatsHandler(statsSvc, logger),
		CashRegister:   cashregister.NewHandler(cashSvc, logger),
		Assignments:    assignments.NewHandler(assignSvc, logger),
		Packages:       packages.NewHandler(packageSvc, logger),
	}
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthChecker {
	checks := map[string]router.HealthChecker{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
