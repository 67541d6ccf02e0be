// Package router wires HTTP routes to their handlers.  Route
// registration is split by audience: public endpoints carry no
// middleware, booking and cart endpoints require the identity header,
// and admin endpoints live under their own prefix.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/gatheraa/event-seat-booking/internal/handler"
    "github.com/gatheraa/event-seat-booking/internal/middleware"
)

// RegisterRoutes registers the routes that require no identity: the
// health check and the public availability aggregate.
func RegisterRoutes(e *echo.Echo, inventory *handler.InventoryHandler) {
    e.GET("/healthz", handler.Health)
    e.GET("/v1/events/:id/availability", inventory.Availability)
}

// RegisterBooking registers the identity-protected booking, quote and
// cart endpoints under /v1.  Every route in this group resolves the
// caller from the X-User-ID header first.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, cart *handler.CartHandler) {
    g := e.Group("/v1")
    g.Use(middleware.Identity())

    g.POST("/events/:id/bookings", b.CreateBooking)
    g.POST("/events/:id/quote", b.Quote)
    g.GET("/bookings/:id", b.GetBooking)
    g.POST("/bookings/:id/confirm", b.ConfirmBooking)
    g.POST("/bookings/:id/cancel", b.CancelBooking)
    g.POST("/bookings/:id/promo", b.ApplyPromo)
    g.GET("/my-bookings", b.ListBookings)

    g.POST("/events/:id/cart", cart.AddSeats)
    g.GET("/events/:id/cart", cart.GetCart)
    g.DELETE("/events/:id/cart", cart.ClearCart)
    g.DELETE("/events/:id/cart/seats", cart.RemoveSeats)
}

// RegisterAdmin registers the inventory management endpoints under
// /v1/admin.  Admin calls arrive through the internal gateway, which is
// expected to have performed its own authorisation; the identity header
// is still required so changes are attributable.
func RegisterAdmin(e *echo.Echo, inventory *handler.InventoryHandler) {
    g := e.Group("/v1/admin")
    g.Use(middleware.Identity())

    g.POST("/seats", inventory.CreateSeats)
    g.POST("/seats/unavailable", inventory.MarkUnavailable)
    g.POST("/seats/available", inventory.MarkAvailable)
}
