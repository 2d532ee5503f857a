package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"order-reconciler/internal/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	r.GET("/health", s.healthHandler)

	api := r.Group("/api")

	// provider-facing: authenticated by signature or by verification, not by session
	// every confirm hit costs a provider verify call
	api.GET("/payments/confirm", s.limiter.Middleware(), s.h.Payments.Confirm)
	api.POST("/webhooks/payment", s.webhooks.Middleware(), s.h.Webhooks.Receive)

	authed := api.Group("", middleware.Auth(s.cfg.JWTSecret))
	authed.POST("/orders", s.limiter.Middleware(), s.h.Checkout.CreateOrder)
	authed.GET("/orders/:id", s.h.Orders.GetOrder)

	admin := authed.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
	admin.PATCH("/orders/:id/status", s.h.Admin.UpdateStatus)

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.db.Health(c.Request.Context())
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}
