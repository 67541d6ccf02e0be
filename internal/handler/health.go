package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health answers liveness probes with a plain "ok".  It deliberately
// touches no backend so a struggling database cannot take the process
// out of rotation.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
