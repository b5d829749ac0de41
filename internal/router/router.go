// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/handler"
	"github.com/staybook/staybook/internal/middleware"
)

// Handlers groups every resource handler the API serves.
type Handlers struct {
	Auth          *handler.AuthHandler
	Phone         *handler.PhoneHandler
	OAuth         *handler.OAuthHandler
	Listings      *handler.ListingHandler
	Bookings      *handler.BookingHandler
	Reviews       *handler.ReviewHandler
	Conversations *handler.ConversationHandler
}

// Options carries the settings route middleware needs.  Redis may be nil,
// in which case caching and rate limiting are skipped.
type Options struct {
	JWTSecret  string
	CookieName string
	Cache      config.CacheConfig
	RateLimit  config.RateLimitConfig
	Redis      *redis.Client
}

// RegisterRoutes mounts the whole API.
func RegisterRoutes(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", handler.Health)

	auth := middleware.Authenticate(opt.JWTSecret, opt.CookieName)
	limit := middleware.NewRateLimiter(opt.RateLimit, opt.Redis)
	cache := middleware.NewResponseCache(opt.Cache, opt.Redis)
	searchCache := middleware.NewResponseCache(opt.Cache.WithTTL(opt.Cache.SearchTTL), opt.Redis)

	api := e.Group("/api")
	registerAuth(api, h, auth, limit)
	registerListings(api, h.Listings, auth, cache, searchCache)
	registerBookings(api, h.Bookings, auth)
	registerReviews(api, h.Reviews, auth)
	registerMessaging(api, h.Conversations, auth)
}
