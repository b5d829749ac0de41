package router

import (
	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/handler"
)

// Every messaging endpoint requires a credential.
func registerMessaging(api *echo.Group, h *handler.ConversationHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/conversations", auth)
	g.GET("", h.List)
	g.POST("", h.Start)
	g.GET("/unread", h.Unread)
	g.GET("/listing/:id", h.ForListing)
	g.POST("/listing/:id", h.SendToListing)
	g.GET("/:id", h.Show)
	g.POST("/:id/messages", h.Send)

	m := api.Group("/messages", auth)
	m.GET("", h.Direct)
	m.POST("", h.SendDirect)
}
