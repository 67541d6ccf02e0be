package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// invoke runs the identity middleware around a probe handler that
// reports what landed in the context.
func invoke(t *testing.T, header string) (*httptest.ResponseRecorder, interface{}) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if header != "" {
        req.Header.Set(HeaderUserID, header)
    }
    w := httptest.NewRecorder()
    c := e.NewContext(req, w)

    var stored interface{}
    h := Identity()(func(c echo.Context) error {
        stored = c.Get("user_id")
        return c.NoContent(http.StatusOK)
    })
    require.NoError(t, h(c))
    return w, stored
}

func TestIdentity_ValidHeader(t *testing.T) {
    w, stored := invoke(t, "42")

    assert.Equal(t, http.StatusOK, w.Code)
    assert.Equal(t, uint64(42), stored)
}

func TestIdentity_MissingHeader(t *testing.T) {
    w, stored := invoke(t, "")

    assert.Equal(t, http.StatusUnauthorized, w.Code)
    assert.Contains(t, w.Body.String(), "missing X-User-ID header")
    assert.Nil(t, stored, "handler must not run")
}

func TestIdentity_NonNumericHeader(t *testing.T) {
    w, stored := invoke(t, "alice")

    assert.Equal(t, http.StatusUnauthorized, w.Code)
    assert.Contains(t, w.Body.String(), "invalid X-User-ID header")
    assert.Nil(t, stored)
}

func TestIdentity_ZeroID(t *testing.T) {
    w, stored := invoke(t, "0")

    assert.Equal(t, http.StatusUnauthorized, w.Code)
    assert.Nil(t, stored)
}

func TestIdentity_NegativeID(t *testing.T) {
    w, stored := invoke(t, "-3")

    assert.Equal(t, http.StatusUnauthorized, w.Code)
    assert.Nil(t, stored)
}
