package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/inspectrack/inspectrack/db/migrations"
	"github.com/inspectrack/inspectrack/internal/handler"
	"github.com/inspectrack/inspectrack/internal/infrastructure/logger"
	redisinfra "github.com/inspectrack/inspectrack/internal/infrastructure/redis"
	"github.com/inspectrack/inspectrack/internal/observability/metrics"
	"github.com/inspectrack/inspectrack/internal/observability/tracing"
	"github.com/inspectrack/inspectrack/internal/reliability/retry"
	"github.com/inspectrack/inspectrack/internal/repository"
	"github.com/inspectrack/inspectrack/internal/security"
	"github.com/inspectrack/inspectrack/internal/security/audit"
	"github.com/inspectrack/inspectrack/internal/security/auth"
	"github.com/inspectrack/inspectrack/internal/security/middleware"
	"github.com/inspectrack/inspectrack/internal/security/ratelimit"
	"github.com/inspectrack/inspectrack/internal/service"
	"github.com/inspectrack/inspectrack/internal/worker"
	"github.com/inspectrack/inspectrack/pkg/config"
	"github.com/inspectrack/inspectrack/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting Inspectrack server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "inspectrack", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
	}

	// 4. Connect to Postgres, retrying while the database comes up
	dbCfg := &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbCfg, log)
		})
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool.GetDB()); err != nil {
		log.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Initialize Redis. Failure is tolerated: summaries degrade to
	// direct computation.
	redisClient, err := redisinfra.NewClient(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, summary caching disabled", slog.String("error", err.Error()))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 6. Initialize repositories
	templateRepo := repository.NewPostgresTemplateRepository(pool.GetDB(), log)
	inspectionRepo := repository.NewPostgresInspectionRepository(pool.GetDB(), log)
	userRepo := repository.NewPostgresUserRepository(pool.GetDB(), log)
	orgRepo := repository.NewPostgresOrgRepository(pool.GetDB(), log)
	passLock := repository.NewAdvisoryPassLock(pool.GetDB(), log)

	// 7. Initialize services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "inspectrack")
	authService := service.NewAuthService(userRepo, tokenManager, log)
	inspectionService := service.NewInspectionService(templateRepo, inspectionRepo, userRepo, log, cfg.BufferDays)

	var summaryCache service.SummaryCache
	if redisClient != nil {
		summaryCache = redisClient
	}
	dashboardService := service.NewDashboardService(inspectionRepo, orgRepo, summaryCache, log, cfg.BufferDays, cfg.SummaryCacheTTL)

	// 8. Initialize security components
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute) // 100 requests per minute per org
	auditLogger := audit.NewLogger(log)

	// 9. Start the scheduling worker in the background
	schedulerWorker := worker.NewSchedulerWorker(
		templateRepo,
		inspectionRepo,
		userRepo,
		passLock,
		log,
		cfg.SchedulerInterval,
		cfg.LookaheadDays,
	)
	go schedulerWorker.Start(ctx)

	// 10. Initialize handlers
	loginHandler := handler.NewLoginHandler(authService, log)
	inspectionsHandler := handler.NewInspectionsHandler(inspectionService, dashboardService, authz, auditLogger, log)
	schedulerHandler := handler.NewSchedulerHandler(schedulerWorker, authz, auditLogger, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, authz, log)
	dashboardStreamHandler := handler.NewDashboardStreamHandler(dashboardService, authz, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(pool, redisClient, log)

	// 11. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/login", loginHandler)
	mux.Handle("POST /api/inspections", http.HandlerFunc(inspectionsHandler.Create))
	mux.Handle("GET /api/inspections", http.HandlerFunc(inspectionsHandler.List))
	mux.Handle("GET /api/inspections/{id}", http.HandlerFunc(inspectionsHandler.Get))
	mux.Handle("POST /api/inspections/{id}/start", http.HandlerFunc(inspectionsHandler.Start))
	mux.Handle("POST /api/inspections/{id}/complete", http.HandlerFunc(inspectionsHandler.Complete))
	mux.Handle("POST /api/scheduler/run", schedulerHandler)
	mux.Handle("GET /api/dashboard/summary", http.HandlerFunc(dashboardHandler.Summary))
	mux.Handle("GET /ws/dashboard", dashboardStreamHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> audit -> CORS/routes
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.AuditMiddleware(auditLogger)(handlerWithCORS),
				),
			),
		),
		log,
	)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Duration("scheduler_interval", cfg.SchedulerInterval),
		slog.Int("lookahead_days", cfg.LookaheadDays),
		slog.Int("buffer_days", cfg.BufferDays),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the scheduling worker
	rateLimiter.Stop()
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := audit.WithRequestID(r.Context(), reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
