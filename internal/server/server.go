package server

import (
	"fmt"
	"net/http"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/metrics"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies are the long-lived collaborators owned by the server.
// Publisher and Redis are optional.
type Dependencies struct {
	Database  database.Service
	Publisher events.Publisher
	Redis     *redis.Client
	Gateway   payment.Gateway
	Metrics   *metrics.Metrics
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Gateway == nil {
		deps.Gateway = payment.NewSimulatedGateway(cfg.Payment.ProcessingDelay)
	}

	s := &Server{
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      s.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	cfg, logger := s.config, s.logger
	db := s.deps.Database.DB()

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(s.deps.Metrics))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	inventory := repository.NewInventoryStore(db)
	ledger := repository.NewOrderLedger(db)

	// Services
	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessExpiry)*time.Minute)
	userService := service.NewUserService(userRepo, refreshTokenRepo, tokens, time.Duration(cfg.JWT.RefreshExpiry)*24*time.Hour)
	productService := service.NewProductService(productRepo, logger)
	paymentService := service.NewPaymentService(s.deps.Gateway, cfg.Payment.Timeout, logger)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Products:       productRepo,
		Inventory:      inventory,
		Ledger:         ledger,
		Gateway:        s.deps.Gateway,
		Publisher:      s.deps.Publisher,
		Metrics:        s.deps.Metrics,
		Checkout:       cfg.Checkout,
		PaymentTimeout: cfg.Payment.Timeout,
		Logger:         logger,
	})

	authMiddleware := custommiddleware.AuthMiddleware(tokens, logger)

	var checkoutLimits, paymentLimits []func(http.Handler) http.Handler
	if cfg.RateLimit.Enabled && s.deps.Redis != nil {
		checkoutLimits = append(checkoutLimits, custommiddleware.RateLimitMiddleware(s.deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit:checkout",
		}, logger))
		paymentLimits = append(paymentLimits, custommiddleware.RateLimitMiddleware(s.deps.Redis, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "ratelimit:payment",
		}, logger))
	}

	transport.NewAuthHandler(userService, cfg.JWT.AccessExpiry*60, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(productService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware, checkoutLimits...)
	transport.NewPaymentHandler(paymentService, logger).RegisterRoutes(router, authMiddleware, paymentLimits...)

	return router
}

// health reports database reachability. 503 when the database is down.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	stats := s.deps.Database.Health()
	if stats["status"] != "up" {
		custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "degraded",
			"database": stats,
		})
		return
	}
	custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": stats,
	})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.deps.Publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.deps.Database.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
