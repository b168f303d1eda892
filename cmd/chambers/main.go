// Command chambers runs the Chambers office-management API server: the
// authorization edge, the tenant-scoped resource API and the quota
// admission layer, plus a separate health/metrics listener.
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
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chambersapp/chambers/pkg/audit"
	"github.com/chambersapp/chambers/pkg/auth"
	"github.com/chambersapp/chambers/pkg/cases"
	"github.com/chambersapp/chambers/pkg/config"
	"github.com/chambersapp/chambers/pkg/firms"
	"github.com/chambersapp/chambers/pkg/httputil"
	"github.com/chambersapp/chambers/pkg/middleware"
	"github.com/chambersapp/chambers/pkg/observability"
	"github.com/chambersapp/chambers/pkg/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, os.Stdout)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	// Postgres holds identities, firms, cases and the audit trail.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = firms.RunMigrations(ctx, db)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis holds server-managed sessions; it is a hard dependency for
	// session authentication and shows up in readiness accordingly.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	service := firms.NewPostgresService(db)
	sessions := auth.NewSessionStore(redisClient, cfg.Auth.SessionTTL)
	tokens := auth.NewTokenStore(db)
	resolver := auth.NewResolver(sessions, tokens, service,
		auth.WithResolveTimeout(cfg.Auth.ResolveTimeout),
		auth.WithTokenCache(cfg.Auth.TokenCacheSize, cfg.Auth.TokenCacheTTL),
		auth.WithMetrics(metrics),
	)

	var recorder audit.Recorder = audit.NopRecorder{}
	var pgRecorder *audit.PostgresRecorder
	if cfg.Audit.Enabled {
		pgRecorder = audit.NewPostgresRecorder(db, log)
		recorder = pgRecorder
	}

	enforcer := middleware.NewEnforcer(resolver, service, routes.Default(),
		metrics, recorder, log, enforcerConfig(cfg))
	quota := middleware.NewQuotaMiddleware(service, metrics, recorder, log)

	caseStore := cases.NewPostgresStore(db)
	caseHandler := cases.NewHandler(caseStore, service, recorder, metrics, log)
	firmHandler := firms.NewHandler(service, recorder, log)

	router := mux.NewRouter()
	router.Use(
		httputil.Recovery(log),
		httputil.RequestID,
		httputil.Logging(log),
		observability.HTTPMetricsMiddleware(metrics),
		enforcer.Handler,
	)
	caseHandler.RegisterRoutes(router, quota.EnforceCaseQuota)
	firmHandler.RegisterRoutes(router, quota.EnforceEmployeeQuota, middleware.FirmContext(service, log))

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	scheduler := startMaintenance(cfg, log, db, tokens, pgRecorder, metrics)

	shutdown := observability.NewShutdownManager(log, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		stopped := scheduler.Stop()
		select {
		case <-stopped.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	var group errgroup.Group
	group.Go(func() error {
		log.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return group.Wait()
}

func enforcerConfig(cfg *config.Config) middleware.EnforcerConfig {
	ecfg := middleware.DefaultEnforcerConfig()
	ecfg.SignInPath = cfg.Auth.SignInPath
	ecfg.UnauthorizedPath = cfg.Auth.UnauthorizedPath
	return ecfg
}

// startMaintenance schedules the recurring cleanup jobs: expired API
// tokens hourly, audit retention and DB pool gauges on their own cadence.
func startMaintenance(cfg *config.Config, log *logrus.Logger, db *sql.DB,
	tokens *auth.TokenStore, pgRecorder *audit.PostgresRecorder, metrics *observability.Metrics) *cron.Cron {
	scheduler := cron.New()

	scheduler.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := tokens.DeleteExpired(ctx)
		if err != nil {
			log.WithError(err).Warn("token cleanup failed")
			return
		}
		if n > 0 {
			log.WithField("deleted", n).Info("removed expired API tokens")
		}
	})

	if pgRecorder != nil && cfg.Audit.RetentionDays > 0 {
		retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
		scheduler.AddFunc("@daily", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			n, err := pgRecorder.DeleteOlderThan(ctx, time.Now().Add(-retention))
			if err != nil {
				log.WithError(err).Warn("audit retention sweep failed")
				return
			}
			if n > 0 {
				log.WithField("deleted", n).Info("pruned audit events past retention")
			}
		})
	}

	scheduler.AddFunc("@every 15s", func() {
		stats := db.Stats()
		metrics.DBConnectionsActive.Set(float64(stats.InUse))
		metrics.DBConnectionsIdle.Set(float64(stats.Idle))
	})

	scheduler.Start()
	return scheduler
}
