package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"space-booking-backend/config"
	"space-booking-backend/internal/mw"
	"space-booking-backend/internal/payment"
	"space-booking-backend/internal/refund"
	"space-booking-backend/internal/reservation"
	"space-booking-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, s store.Store, reservations *reservation.Service, payments *payment.Orchestrator, refunds *refund.Automation) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, reservations, payments, refunds)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/spaces", caching, GetSpaces(s))
		api.GET("/spaces/:id", caching, GetSpace(s))

		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations/:id", handler.GetReservation)
		api.PATCH("/reservations/:id", handler.UpdateReservation)
		api.DELETE("/reservations/:id", handler.DeleteReservation)
		api.POST("/reservations/:id/decision", handler.DecideReservation)

		api.POST("/reservations/:id/payment", handler.CreateChargeIntent)
		api.POST("/payments/notification", handler.GatewayNotification)

		api.POST("/refunds", handler.CreateRefund)
		api.GET("/refunds/:id/status", handler.GetRefundStatus)

		api.GET("/subscriptions", handler.GetSubscriptions)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
