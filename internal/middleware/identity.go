package middleware

// identity.go resolves the caller's identity.  The service trusts the
// X-User-ID header set by the gateway in front of it; there is no
// credential check here.  Handlers read the resolved id from the Echo
// context via c.Get("user_id").

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"
)

// HeaderUserID is the request header carrying the caller's user id.
const HeaderUserID = "X-User-ID"

// Identity returns a middleware that requires a positive integer
// X-User-ID header and stores it in the context as a uint64 under
// "user_id".  Requests without a usable id are rejected with 401.
func Identity() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Request().Header.Get(HeaderUserID)
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing " + HeaderUserID + " header"})
            }
            id, err := strconv.ParseUint(raw, 10, 64)
            if err != nil || id == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid " + HeaderUserID + " header"})
            }
            c.Set("user_id", id)
            return next(c)
        }
    }
}
