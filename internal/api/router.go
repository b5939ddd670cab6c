package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"park-permit-backend/config"
	"park-permit-backend/internal/mw"
	"park-permit-backend/internal/refresh"
	"park-permit-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, s store.Store, r *refresh.Service, webpushOptions *webpush.Options) *gin.Engine {
	engine := gin.Default()

	handler := NewHandler(s, r, webpushOptions)

	rateLimiter := mw.RateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst, cfg.RequestIPHeader)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	// API group
	api := engine.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/areas", caching, handler.GetAreas)

		api.GET("/groups/:group/permits", caching, handler.GetPermits)
		api.GET("/groups/:group/permits/by-org", caching, handler.GetPermitsByOrg)
		api.GET("/groups/:group/occupancy", caching, handler.GetOccupancy)

		api.POST("/refresh", handler.PostRefresh)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return engine
}
