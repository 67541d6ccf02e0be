package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/gatheraa/event-seat-booking/internal/repository"
)

// CartHandler exposes the per-user, per-event seat cart.  The cart is a
// convenience staging area: nothing in it is reserved, and its TTL
// resets on every mutation.  Carts may be nil when Redis is not
// configured, in which case every route answers 503.
type CartHandler struct {
    Carts *repository.CartStore
}

func NewCartHandler(carts *repository.CartStore) *CartHandler {
    return &CartHandler{Carts: carts}
}

// cartView is the JSON shape all cart routes return.
type cartView struct {
    EventID          uint64   `json:"event_id"`
    SeatIDs          []uint64 `json:"seat_ids"`
    ExpiresInSeconds int64    `json:"expires_in_seconds"`
}

func (h *CartHandler) unavailable(c echo.Context) error {
    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cart backend unavailable"})
}

// AddSeats handles POST /v1/events/:id/cart.  Absent carts are created;
// seat ids already present are kept once.
func (h *CartHandler) AddSeats(c echo.Context) error {
    if h.Carts == nil {
        return h.unavailable(c)
    }
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        SeatIDs []uint64 `json:"seat_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seatIDs := uniqueSeatIDs(body.SeatIDs)
    if len(seatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }
    rec, err := h.Carts.AddSeats(c.Request().Context(), userID, eventID, seatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return h.respondCart(c, eventID, rec)
}

// RemoveSeats handles DELETE /v1/events/:id/cart/seats.  Removing from
// a missing cart leaves an empty cart behind; ids not present are
// ignored.
func (h *CartHandler) RemoveSeats(c echo.Context) error {
    if h.Carts == nil {
        return h.unavailable(c)
    }
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        SeatIDs []uint64 `json:"seat_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seatIDs := uniqueSeatIDs(body.SeatIDs)
    if len(seatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }
    rec, err := h.Carts.RemoveSeats(c.Request().Context(), userID, eventID, seatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return h.respondCart(c, eventID, rec)
}

// GetCart handles GET /v1/events/:id/cart.  An absent cart is reported
// as empty with zero TTL rather than 404.
func (h *CartHandler) GetCart(c echo.Context) error {
    if h.Carts == nil {
        return h.unavailable(c)
    }
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    rec, ttl, err := h.Carts.Get(c.Request().Context(), userID, eventID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, cartView{
        EventID:          eventID,
        SeatIDs:          rec.SeatIDs,
        ExpiresInSeconds: int64(ttl.Seconds()),
    })
}

// ClearCart handles DELETE /v1/events/:id/cart and returns 204 whether
// or not a cart existed.
func (h *CartHandler) ClearCart(c echo.Context) error {
    if h.Carts == nil {
        return h.unavailable(c)
    }
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    if err := h.Carts.Clear(c.Request().Context(), userID, eventID); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// respondCart re-reads the TTL after a mutation so the view reflects
// the reset window.
func (h *CartHandler) respondCart(c echo.Context, eventID uint64, rec *repository.CartRecord) error {
    ttl, err := h.Carts.TTL(c.Request().Context(), rec.UserID, eventID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, cartView{
        EventID:          eventID,
        SeatIDs:          rec.SeatIDs,
        ExpiresInSeconds: int64(ttl.Seconds()),
    })
}
