package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/calmhq/calmcontent/internal/auth"
	"github.com/calmhq/calmcontent/internal/cache"
	"github.com/calmhq/calmcontent/internal/config"
	"github.com/calmhq/calmcontent/internal/http/handlers"
	"github.com/calmhq/calmcontent/internal/http/middlewares"
	"github.com/calmhq/calmcontent/internal/observability"
	"github.com/calmhq/calmcontent/internal/redisclient"
	"github.com/calmhq/calmcontent/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) (*gin.Engine, error) {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTTL())

	if err != nil {
		return nil, err
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("calmcontent"))

	// metrics on a private registry

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// health

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// docs

	r.GET("/docs", handlers.DocsUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	contentsRepo := postgres.NewContentsRepo(pool, prom)

	// rate limiting for the credential endpoints; shared window via Redis
	// when configured, per-process otherwise

	var counterStore middlewares.CounterStore

	if cfg.RedisAddr != "" {
		counterStore = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	limiter := middlewares.NewRateLimiter(counterStore, cfg.AuthRateLimit, cfg.AuthRateWindow())

	// handlers

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)
	contentsHandler := handlers.NewContentsHandlerWithCache(contentsRepo, cache.New(30*time.Second))
	adminHandler := handlers.NewAdminHandler(usersRepo, contentsRepo)

	authMiddleware := middlewares.NewAuthMiddleware(jwtManager, usersRepo, log)

	authGroup := r.Group("/auth")
	authGroup.Use(limiter.Middleware(middlewares.KeyByIP))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	contentsGroup := r.Group("/contents")
	contentsGroup.Use(authMiddleware.RequireAuth())
	{
		contentsGroup.GET("/", contentsHandler.List)
		contentsGroup.POST("/", contentsHandler.Create)
	}

	adminGroup := r.Group("/admin")
	adminGroup.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole("admin"))
	{
		adminGroup.GET("/contents", adminHandler.ListAllContents)
		adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
		adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	return r, nil
}
