package handler

// common.go holds helpers shared by the booking, cart and inventory
// handlers: identity extraction, error classification and seat id
// normalisation.

import (
    "errors"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/gatheraa/event-seat-booking/internal/model"
)

// currentUserID reads the user id stored in the context by the identity
// middleware.  It returns an error when the middleware did not run or
// stored an unexpected type.
func currentUserID(c echo.Context) (uint64, error) {
    id, ok := c.Get("user_id").(uint64)
    if !ok || id == 0 {
        return 0, errors.New("no user id in context")
    }
    return id, nil
}

// respondError translates a service error into the JSON error envelope.
// Classified errors keep their message so callers see which seats or
// bookings were involved; anything unclassified becomes a 500 with the
// cause logged rather than leaked.
func respondError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, model.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, model.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, model.ErrBadRequest):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// uniqueSeatIDs drops zero ids and duplicates while keeping the order
// seats were requested in.
func uniqueSeatIDs(ids []uint64) []uint64 {
    unique := make([]uint64, 0, len(ids))
    seen := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        if id == 0 {
            continue
        }
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        unique = append(unique, id)
    }
    return unique
}
