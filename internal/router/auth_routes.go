package router

import (
	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/oauth"
)

// Credential-issuing endpoints sit behind the rate limiter.
func registerAuth(api *echo.Group, h Handlers, auth, limit echo.MiddlewareFunc) {
	api.POST("/auth/register", h.Auth.Register, limit)
	api.POST("/auth", h.Auth.Login, limit)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/check", h.Auth.Check)

	users := api.Group("/users")
	users.GET("/me", h.Auth.Me, auth)
	users.POST("/phone/getotp", h.Phone.RequestCode, limit)
	users.POST("/phone", h.Phone.Verify, limit)
	users.POST("/google", h.OAuth.Login(oauth.ProviderGoogle), limit)
	users.POST("/facebook", h.OAuth.Login(oauth.ProviderFacebook), limit)
	users.POST("/apple", h.OAuth.Login(oauth.ProviderApple), limit)
}
