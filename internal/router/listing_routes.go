package router

import (
	"github.com/labstack/echo/v4"

	"github.com/staybook/staybook/internal/handler"
	"github.com/staybook/staybook/internal/middleware"
	"github.com/staybook/staybook/internal/model"
)

// Public listing reads go through the response cache.  Booked dates are
// left uncached so a fresh booking shows up on the calendar immediately.
func registerListings(api *echo.Group, h *handler.ListingHandler, auth, cache, searchCache echo.MiddlewareFunc) {
	g := api.Group("/listings")
	g.GET("", h.List, cache)
	g.GET("/search", h.Search, searchCache)
	g.GET("/:id", h.Show, cache)
	g.GET("/:id/booked-dates", h.BookedDates)
	g.POST("", h.Create, auth, middleware.RequireRole(model.RoleHost))
}

func registerBookings(api *echo.Group, h *handler.BookingHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/bookings", auth)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Show)
	g.POST("/:id/cancel", h.Cancel)
}

func registerReviews(api *echo.Group, h *handler.ReviewHandler, auth echo.MiddlewareFunc) {
	api.GET("/reviews", h.List)
	api.POST("/reviews", h.Create, auth)
}
