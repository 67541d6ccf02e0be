package handler

import (
    "context"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/gatheraa/event-seat-booking/internal/model"
    "github.com/gatheraa/event-seat-booking/internal/service"
)

// InventoryHandler exposes seat availability to the public and the
// admin-side inventory operations: bulk seat creation and taking seats
// in and out of sale.
type InventoryHandler struct {
    Inventory *service.InventoryService
}

func NewInventoryHandler(inventory *service.InventoryService) *InventoryHandler {
    if inventory == nil {
        panic("nil inventory service passed to NewInventoryHandler")
    }
    return &InventoryHandler{Inventory: inventory}
}

// Availability handles GET /v1/events/:id/availability.  It returns the
// per-section, per-tier aggregate without requiring identity, so ticket
// pages can poll it for guests.  An unknown event id yields an empty
// report, not 404.
func (h *InventoryHandler) Availability(c echo.Context) error {
    eventID, ok := eventIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    report, err := h.Inventory.Availability(c.Request().Context(), eventID)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, report)
}

// seatSpec is one seat in the admin bulk-create body.
type seatSpec struct {
    Section    string  `json:"section"`
    RowLabel   string  `json:"row_label"`
    SeatNumber uint32  `json:"seat_number"`
    Tier       string  `json:"tier"`
    Price      float64 `json:"price"`
}

// CreateSeats handles POST /v1/admin/seats.  Every seat starts
// AVAILABLE at version 1.  A duplicate (event, section, row, number)
// position anywhere in the batch rejects the whole batch with 409.
func (h *InventoryHandler) CreateSeats(c echo.Context) error {
    var body struct {
        EventID uint64     `json:"event_id"`
        Seats   []seatSpec `json:"seats"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
    }
    if len(body.Seats) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
    }
    seats := make([]model.Seat, 0, len(body.Seats))
    for i, spec := range body.Seats {
        if spec.Section == "" || spec.RowLabel == "" || spec.SeatNumber == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("seat %d: section, row_label and seat_number are required", i)})
        }
        if spec.Price < 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("seat %d: price must not be negative", i)})
        }
        seats = append(seats, model.Seat{
            EventID:    body.EventID,
            Section:    spec.Section,
            RowLabel:   spec.RowLabel,
            SeatNumber: spec.SeatNumber,
            Tier:       spec.Tier,
            Price:      spec.Price,
        })
    }
    if err := h.Inventory.CreateSeats(c.Request().Context(), seats); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"created": len(seats)})
}

// MarkUnavailable handles POST /v1/admin/seats/unavailable.  Only
// AVAILABLE seats transition; the response reports how many did.
func (h *InventoryHandler) MarkUnavailable(c echo.Context) error {
    return h.bulkTransition(c, h.Inventory.MarkUnavailable)
}

// MarkAvailable handles POST /v1/admin/seats/available, the reverse of
// MarkUnavailable for seats currently out of sale.
func (h *InventoryHandler) MarkAvailable(c echo.Context) error {
    return h.bulkTransition(c, h.Inventory.MarkAvailable)
}

func (h *InventoryHandler) bulkTransition(c echo.Context, op func(ctx context.Context, seatIDs []uint64) (int64, error)) error {
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
    updated, err := op(c.Request().Context(), seatIDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}
