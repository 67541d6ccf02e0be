package handler

import (
    "net/http"
    "strconv"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/gatheraa/event-seat-booking/internal/service"
)

// BookingHandler exposes the booking saga over HTTP.  All methods
// assume the identity middleware already resolved the caller, so a
// missing user id in context yields 401.  Orchestration, pricing and
// compensation live in the service; the handler only binds, validates
// and classifies errors.
type BookingHandler struct {
    Bookings *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.  The service must be
// non-nil.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
    if bookings == nil {
        panic("nil booking service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: bookings}
}

// bookingIDParam validates the :id path parameter as a UUID.
func bookingIDParam(c echo.Context) (string, bool) {
    id := c.Param("id")
    if _, err := uuid.Parse(id); err != nil {
        return "", false
    }
    return id, true
}

// eventIDParam validates the :id path parameter as a positive event id.
func eventIDParam(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// CreateBooking handles POST /v1/events/:id/bookings.  The body carries
// the seats to book plus an optional promo code and currency.  On
// success the seats are reserved for the configured hold window and a
// PENDING booking with per-seat items is returned with 201.  409 names
// the seats that could not be reserved; 404 names the ones that do not
// exist.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        SeatIDs   []uint64 `json:"seat_ids"`
        PromoCode *string  `json:"promo_code"`
        Currency  string   `json:"currency"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seatIDs := uniqueSeatIDs(body.SeatIDs)
    if len(seatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }
    detail, err := h.Bookings.CreateBooking(c.Request().Context(), userID, eventID, seatIDs, body.PromoCode, body.Currency)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, detail)
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.  It finalises a
// PENDING booking whose reservation window is still open.  An overdue
// booking is expired instead and reported as 409.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := bookingIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    detail, err := h.Bookings.ConfirmBooking(c.Request().Context(), bookingID, userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, detail)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.  An optional
// reason from the body is stored with the booking and included in the
// cancellation event.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := bookingIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body struct {
        Reason *string `json:"reason"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    detail, err := h.Bookings.CancelBooking(c.Request().Context(), bookingID, userID, body.Reason)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, detail)
}

// ApplyPromo handles POST /v1/bookings/:id/promo.  The booking must
// still be PENDING; its amounts and item prices are overwritten with
// the freshly priced result.
func (h *BookingHandler) ApplyPromo(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := bookingIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    var body struct {
        PromoCode string `json:"promo_code"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PromoCode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "promo_code is required"})
    }
    detail, err := h.Bookings.ApplyPromoCode(c.Request().Context(), bookingID, body.PromoCode, userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, detail)
}

// GetBooking handles GET /v1/bookings/:id for the booking's owner.
func (h *BookingHandler) GetBooking(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, ok := bookingIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    detail, err := h.Bookings.GetBooking(c.Request().Context(), bookingID, userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, detail)
}

// ListBookings handles GET /v1/my-bookings.  It returns the caller's
// bookings newest first; an empty list is a 200 with empty items.
func (h *BookingHandler) ListBookings(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    details, err := h.Bookings.GetUserBookings(c.Request().Context(), userID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": details})
}

// Quote handles POST /v1/events/:id/quote.  It prices the given seats
// with the same engine a booking would use, without reserving anything.
// The preview is not authoritative; the booking created later is.
func (h *BookingHandler) Quote(c echo.Context) error {
    userID, err := currentUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body struct {
        SeatIDs   []uint64 `json:"seat_ids"`
        PromoCode *string  `json:"promo_code"`
        Currency  string   `json:"currency"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    seatIDs := uniqueSeatIDs(body.SeatIDs)
    if len(seatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }
    quote, err := h.Bookings.Quote(c.Request().Context(), userID, eventID, seatIDs, body.PromoCode, body.Currency)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, quote)
}
