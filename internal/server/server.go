package server

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"order-reconciler/internal/config"
	"order-reconciler/internal/database"
	"order-reconciler/internal/handler"
	"order-reconciler/internal/middleware"
)

type Server struct {
	cfg    *config.Config
	db     database.Service
	logger *zap.Logger

	h        Handlers
	limiter  *middleware.RateLimiter
	webhooks *middleware.RateLimiter
}

type Handlers struct {
	Checkout *handler.CheckoutHandler
	Payments *handler.PaymentHandler
	Webhooks *handler.WebhookHandler
	Orders   *handler.OrderHandler
	Admin    *handler.AdminHandler
}

func New(cfg *config.Config, db database.Service, h Handlers, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		h:        h,
		limiter:  middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst),
		webhooks: middleware.NewRateLimiter(cfg.WebhookRateRPS, cfg.WebhookRateBurst),
	}
}

// HTTPServer wraps the router with the listener timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
