// Command gateway runs the payment API gateway: authentication,
// authorization, rate limiting and audit in front of the payment
// endpoints.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"github.com/lmnpay/gateway/pkg/audit"
	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/authz"
	"github.com/lmnpay/gateway/pkg/clients"
	"github.com/lmnpay/gateway/pkg/config"
	"github.com/lmnpay/gateway/pkg/httputil"
	"github.com/lmnpay/gateway/pkg/observability"
	"github.com/lmnpay/gateway/pkg/payments"
	"github.com/lmnpay/gateway/pkg/pipeline"
	"github.com/lmnpay/gateway/pkg/plans"
	"github.com/lmnpay/gateway/pkg/ratelimit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting payment gateway")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Backing stores
	var db *sql.DB
	if cfg.Storage.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.Storage.PostgresURL)
		if err != nil {
			return fmt.Errorf("failed to open postgres connection: %w", err)
		}
		db.SetMaxOpenConns(cfg.Storage.PostgresMaxConns)
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to ping postgres: %w", err)
		}
		logger.Info("Connected to PostgreSQL")
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}
		if cfg.Storage.RedisPassword != "" {
			opts.Password = cfg.Storage.RedisPassword
		}
		if cfg.Storage.RedisDB != 0 {
			opts.DB = cfg.Storage.RedisDB
		}
		opts.PoolSize = cfg.Storage.RedisPoolSize
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("Connected to Redis")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Credential store
	var store clients.CredentialStore
	switch cfg.Storage.Type {
	case "postgres":
		pgStore, err := clients.NewPostgresStore(db)
		if err != nil {
			return fmt.Errorf("failed to initialize credential store: %w", err)
		}
		store = pgStore
	default:
		logger.Warn("Using in-memory credential store; credentials do not persist across restarts")
		store = clients.NewMemoryStore()
	}
	if cfg.Storage.CacheEnabled {
		cached := clients.NewCachedStore(store, cfg.Storage.CacheSize, cfg.Storage.CacheTTL)
		cached.SetObserver(metrics.CredentialCacheHits.Inc, metrics.CredentialCacheMisses.Inc)
		store = cached
	}

	// Rate limiter
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		redisLimiter := ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.KeyPrefix)
		redisLimiter.FailOpen = cfg.RateLimit.FailOpen
		limiter = redisLimiter
	default:
		logger.Warn("Using in-memory rate limiter; counters are per-process")
		limiter = ratelimit.NewMemoryLimiter()
	}

	// Audit trail
	var pgSink *audit.PostgresSink
	var innerSink audit.Sink
	switch cfg.Audit.Backend {
	case "postgres", "both":
		pgSink, err = audit.NewPostgresSink(db, audit.WithFailureCallback(func(err error) {
			logger.WithError(err).Error("Failed to persist audit record")
			metrics.StoreErrorsTotal.WithLabelValues("audit").Inc()
		}))
		if err != nil {
			return fmt.Errorf("failed to initialize audit sink: %w", err)
		}
		if cfg.Audit.Backend == "both" {
			innerSink = audit.NewMultiSink(pgSink, audit.NewLogSink(logger))
		} else {
			innerSink = pgSink
		}
	default:
		innerSink = audit.NewLogSink(logger)
	}
	sink := audit.NewAsyncSink(innerSink, cfg.Audit.BufferSize,
		audit.WithDropCallback(metrics.AuditRecordsDropped.Inc))

	// Plan matrix
	matrix := plans.Default()
	if cfg.Plans.File != "" {
		matrix, err = plans.LoadFile(cfg.Plans.File)
		if err != nil {
			return fmt.Errorf("failed to load plan matrix: %w", err)
		}
		logger.Infof("Loaded plan matrix from %s", cfg.Plans.File)
	}

	// Decision pipeline
	chain := auth.NewChain(
		auth.NewKeySecretStrategy(store),
		auth.NewSignatureStrategy(store, cfg.Auth.SignatureFreshness),
	)
	guard := pipeline.New(chain, authz.DefaultEvaluator(matrix), limiter, sink, logger,
		pipeline.WithMetrics(metrics),
		pipeline.WithTrustedProxies(httputil.NewTrustedProxies(cfg.Server.TrustedProxies)),
	)

	// API routes
	router := mux.NewRouter()
	router.Use(observability.PanicRecoveryMiddleware(logger))
	router.Use(pipeline.LoggingMiddleware(logger))
	payments.NewHandlers(payments.NewStubProvider(), logger).RegisterRoutes(router, guard)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "gateway"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port
	healthChecker := observability.NewHealthChecker(db, redisClient)
	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", healthChecker.Liveness).Methods(http.MethodGet)
	healthRouter.HandleFunc("/readyz", healthChecker.Readiness).Methods(http.MethodGet)
	if cfg.Observability.MetricsEnabled {
		healthRouter.Handle("/metrics", observability.Handler(registry)).Methods(http.MethodGet)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter,
	}

	// Audit retention job
	scheduler := cron.New()
	if pgSink != nil && cfg.Audit.Retention > 0 {
		_, err = scheduler.AddFunc(cfg.Audit.PruneSchedule, func() {
			pruneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			cutoff := time.Now().UTC().Add(-cfg.Audit.Retention)
			deleted, err := pgSink.PruneBefore(pruneCtx, cutoff)
			if err != nil {
				logger.WithError(err).Error("Audit retention prune failed")
				return
			}
			logger.WithField("deleted", deleted).Info("Pruned expired audit records")
		})
		if err != nil {
			return fmt.Errorf("failed to schedule audit retention job: %w", err)
		}
		scheduler.Start()
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cronCtx := scheduler.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
		return nil
	})
	shutdown.RegisterShutdownFunc(func(context.Context) error {
		return sink.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	var group errgroup.Group
	group.Go(func() error {
		logger.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(shutdown.WaitForShutdown)

	return group.Wait()
}
