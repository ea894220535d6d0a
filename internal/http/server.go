package http

import (
	"context"
	"net/http"
	"time"

	"github.com/driftlab/newsletter-service/internal/config"
	"github.com/driftlab/newsletter-service/internal/http/middleware"
	"github.com/driftlab/newsletter-service/internal/metrics"
	"github.com/driftlab/newsletter-service/internal/repository"
	"github.com/driftlab/newsletter-service/internal/service/subscription"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB *sqlx.DB, rds *redis.Client) *Server {
	// repos
	customersRepo := repository.NewCustomersRepository()
	categoriesRepo := repository.NewCategoriesRepository(mysqlDB)
	subscriptionsRepo := repository.NewSubscriptionsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// services
	subSvc := subscription.New(
		mysqlDB,
		customersRepo,
		categoriesRepo,
		subscriptionsRepo,
		outboxRepo,
		cfg.Kafka.Topic,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares: subscribe is a public flow, limit per client IP
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", rlMW)
	v1.GET("/subscriptions", listSubscriptionsHandler(subSvc, cfg.Pagination))
	v1.POST("/subscriptions", createSubscriptionHandler(subSvc))
	v1.GET("/categories", listCategoriesHandler(categoriesRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
