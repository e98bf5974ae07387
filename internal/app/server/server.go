package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"paycore/internal/domain/audit"
	"paycore/internal/domain/auth"
	"paycore/internal/domain/company"
	"paycore/internal/domain/leave"
	"paycore/internal/domain/payroll"
	"paycore/internal/platform/config"
	"paycore/internal/platform/db"
	"paycore/internal/platform/metrics"
	"paycore/internal/transport/http/api"
	audithandler "paycore/internal/transport/http/handlers/audit"
	authhandler "paycore/internal/transport/http/handlers/auth"
	companyhandler "paycore/internal/transport/http/handlers/company"
	leavehandler "paycore/internal/transport/http/handlers/leave"
	payrollhandler "paycore/internal/transport/http/handlers/payroll"
	"paycore/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	router := NewRouter(cfg, pool)

	log.Printf("paycore listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// NewRouter wires middleware, services and routes onto one chi mux.
func NewRouter(cfg config.Config, pool *pgxpool.Pool) *chi.Mux {
	logFormat := httplog.SchemaECS.Concise(cfg.Environment != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "paycore"),
		slog.String("env", cfg.Environment),
	)

	collector := metrics.New()
	perms := auth.StaticPermissions{}

	auditSvc := audit.New(pool)
	authSvc := auth.NewService(pool, cfg.JWTSecret, cfg.JWTTTL)
	payrollSvc := payroll.NewService(payroll.NewStore(pool))
	leaveSvc := leave.NewService(leave.NewStore(pool))
	companySvc := company.NewService(company.NewStore(pool))

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:           300,
	}))
	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Metrics(collector))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermAuditRead, perms)).
			Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
			})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc).RegisterRoutes(r)
		companyhandler.NewHandler(companySvc, leaveSvc, perms, auditSvc, cfg.DefaultLeaveGrant).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollSvc, perms, auditSvc, collector).RegisterRoutes(r)
		leavehandler.NewHandler(leaveSvc, perms, auditSvc, collector).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, perms).RegisterRoutes(r)
	})

	return router
}
