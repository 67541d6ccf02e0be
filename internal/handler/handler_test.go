package handler

import (
    "bytes"
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    sqlmock "github.com/DATA-DOG/go-sqlmock"
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/gatheraa/event-seat-booking/internal/coupon"
    "github.com/gatheraa/event-seat-booking/internal/middleware"
    "github.com/gatheraa/event-seat-booking/internal/model"
    "github.com/gatheraa/event-seat-booking/internal/queue"
    "github.com/gatheraa/event-seat-booking/internal/repository"
    "github.com/gatheraa/event-seat-booking/internal/service"
)

// stubInventory serves seats out of a fixed map and records releases.
// It satisfies the inventory surface the booking service consumes.
type stubInventory struct {
    seats      map[uint64]model.Seat
    reserveErr error
    released   [][]uint64
}

func (s *stubInventory) collect(seatIDs []uint64) ([]model.Seat, error) {
    out := make([]model.Seat, 0, len(seatIDs))
    for _, id := range seatIDs {
        seat, ok := s.seats[id]
        if !ok {
            return nil, fmt.Errorf("%w: seats [%d] do not exist", model.ErrNotFound, id)
        }
        out = append(out, seat)
    }
    return out, nil
}

func (s *stubInventory) ReserveSeats(ctx context.Context, seatIDs []uint64, userID uint64, holdFor time.Duration) ([]model.Seat, error) {
    if s.reserveErr != nil {
        return nil, s.reserveErr
    }
    return s.collect(seatIDs)
}

func (s *stubInventory) GetSeats(ctx context.Context, seatIDs []uint64) ([]model.Seat, error) {
    return s.collect(seatIDs)
}

func (s *stubInventory) ReleaseSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
    s.released = append(s.released, seatIDs)
    return int64(len(seatIDs)), nil
}

func (s *stubInventory) ConfirmSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
    return int64(len(seatIDs)), nil
}

// stubStore keeps booking details in memory and mimics the guarded
// status transitions of the real repository.
type stubStore struct {
    details   map[string]*repository.BookingDetail
    detailErr error
}

func newStubStore() *stubStore {
    return &stubStore{details: make(map[string]*repository.BookingDetail)}
}

func (s *stubStore) CreateWithItems(ctx context.Context, b *model.Booking, items []model.BookingItem) error {
    detail := &repository.BookingDetail{
        ID:                   b.ID,
        UserID:               b.UserID,
        EventID:              b.EventID,
        Status:               b.Status,
        TotalAmount:          b.TotalAmount,
        DiscountAmount:       b.DiscountAmount,
        FinalAmount:          b.FinalAmount,
        Currency:             b.Currency,
        PromoCode:            b.PromoCode,
        ReservationExpiresAt: b.ReservationExpiresAt,
        Items:                []repository.BookingItemDetail{},
    }
    for _, it := range items {
        detail.Items = append(detail.Items, repository.BookingItemDetail{
            ID: it.ID, SeatID: it.SeatID, UnitPrice: it.UnitPrice, FinalPrice: it.FinalPrice,
        })
    }
    s.details[b.ID] = detail
    return nil
}

func (s *stubStore) GetDetail(ctx context.Context, bookingID string) (*repository.BookingDetail, error) {
    if s.detailErr != nil {
        return nil, s.detailErr
    }
    detail, ok := s.details[bookingID]
    if !ok {
        return nil, sql.ErrNoRows
    }
    copied := *detail
    return &copied, nil
}

func (s *stubStore) ListDetailsByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error) {
    out := make([]repository.BookingDetail, 0)
    for _, d := range s.details {
        if d.UserID == userID {
            out = append(out, *d)
        }
    }
    return out, nil
}

func (s *stubStore) ListExpiredPending(ctx context.Context) ([]repository.BookingDetail, error) {
    return nil, nil
}

func (s *stubStore) Confirm(ctx context.Context, bookingID string, at time.Time) (int64, error) {
    d, ok := s.details[bookingID]
    if !ok || d.Status != model.BookingStatusPending {
        return 0, nil
    }
    d.Status = model.BookingStatusConfirmed
    confirmed := at
    d.ConfirmedAt = &confirmed
    d.ReservationExpiresAt = nil
    return 1, nil
}

func (s *stubStore) Cancel(ctx context.Context, bookingID string, at time.Time, reason *string) (int64, error) {
    d, ok := s.details[bookingID]
    if !ok || (d.Status != model.BookingStatusPending && d.Status != model.BookingStatusConfirmed) {
        return 0, nil
    }
    d.Status = model.BookingStatusCancelled
    cancelled := at
    d.CancelledAt = &cancelled
    d.CancellationReason = reason
    return 1, nil
}

func (s *stubStore) Expire(ctx context.Context, bookingID string, at time.Time) (int64, error) {
    d, ok := s.details[bookingID]
    if !ok || d.Status != model.BookingStatusPending {
        return 0, nil
    }
    d.Status = model.BookingStatusExpired
    return 1, nil
}

func (s *stubStore) UpdatePricing(ctx context.Context, bookingID string, total, discount, final float64, promoCode *string, items []model.BookingItem) error {
    d, ok := s.details[bookingID]
    if !ok || d.Status != model.BookingStatusPending {
        return model.ErrConflict
    }
    d.TotalAmount, d.DiscountAmount, d.FinalAmount, d.PromoCode = total, discount, final, promoCode
    return nil
}

// grantingValidator approves every code with a fixed discount.
type grantingValidator struct {
    discount float64
}

func (v grantingValidator) ValidateCoupon(ctx context.Context, req coupon.Request) (coupon.Result, error) {
    return coupon.Result{IsValid: true, DiscountAmount: v.discount}, nil
}

// setupRouter wires real services over the stubs and registers the
// booking and cart routes the way the server does.
func setupRouter(t *testing.T) (*stubInventory, *stubStore, http.Handler) {
    t.Helper()
    inv := &stubInventory{seats: map[uint64]model.Seat{
        1: {ID: 1, EventID: 9, Section: "A", RowLabel: "B", SeatNumber: 1, Tier: "STANDARD", Price: 100, Status: model.SeatStatusAvailable, Version: 1},
        2: {ID: 2, EventID: 9, Section: "A", RowLabel: "B", SeatNumber: 2, Tier: "STANDARD", Price: 50, Status: model.SeatStatusAvailable, Version: 1},
        3: {ID: 3, EventID: 8, Section: "A", RowLabel: "B", SeatNumber: 3, Tier: "STANDARD", Price: 75, Status: model.SeatStatusAvailable, Version: 1},
    }}
    store := newStubStore()
    pricing := service.NewPricingEngine(grantingValidator{discount: 30})
    var publish func(ctx context.Context, ev queue.BookingEvent) error
    bookings := service.NewBookingService(inv, store, nil, pricing, publish, 15*time.Minute, "USD")

    e := echo.New()
    b := NewBookingHandler(bookings)
    cart := NewCartHandler(nil)
    g := e.Group("/v1", middleware.Identity())
    g.POST("/events/:id/bookings", b.CreateBooking)
    g.POST("/events/:id/quote", b.Quote)
    g.GET("/bookings/:id", b.GetBooking)
    g.POST("/bookings/:id/confirm", b.ConfirmBooking)
    g.POST("/bookings/:id/cancel", b.CancelBooking)
    g.POST("/bookings/:id/promo", b.ApplyPromo)
    g.GET("/my-bookings", b.ListBookings)
    g.GET("/events/:id/cart", cart.GetCart)
    return inv, store, e
}

// seedPending plants a PENDING booking for seats 1 and 2 owned by the
// given user and returns its id.
func seedPending(store *stubStore, userID uint64) string {
    id := uuid.New().String()
    expires := time.Now().UTC().Add(10 * time.Minute)
    store.details[id] = &repository.BookingDetail{
        ID:                   id,
        UserID:               userID,
        EventID:              9,
        Status:               model.BookingStatusPending,
        TotalAmount:          150,
        FinalAmount:          150,
        Currency:             "USD",
        ReservationExpiresAt: &expires,
        Items: []repository.BookingItemDetail{
            {ID: uuid.New().String(), SeatID: 1, UnitPrice: 100, FinalPrice: 100},
            {ID: uuid.New().String(), SeatID: 2, UnitPrice: 50, FinalPrice: 50},
        },
    }
    return id
}

// doJSON performs a request with an optional JSON body and identity
// header against the router under test.
func doJSON(t *testing.T, h http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
    t.Helper()
    var rd io.Reader
    if body != nil {
        raw, err := json.Marshal(body)
        require.NoError(t, err)
        rd = bytes.NewReader(raw)
    }
    req := httptest.NewRequest(method, path, rd)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if userID != "" {
        req.Header.Set(middleware.HeaderUserID, userID)
    }
    w := httptest.NewRecorder()
    h.ServeHTTP(w, req)
    return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
    t.Helper()
    var resp map[string]string
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    return resp["error"]
}

func TestBookingHandler_CreateBooking_Success(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "7", echo.Map{"seat_ids": []uint64{1, 2}})

    assert.Equal(t, http.StatusCreated, w.Code)

    var resp repository.BookingDetail
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, model.BookingStatusPending, resp.Status)
    assert.Equal(t, uint64(7), resp.UserID)
    assert.Equal(t, 150.0, resp.TotalAmount)
    assert.Len(t, resp.Items, 2)
    assert.NotNil(t, resp.ReservationExpiresAt)
}

func TestBookingHandler_CreateBooking_MissingIdentity(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "", echo.Map{"seat_ids": []uint64{1}})

    assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandler_CreateBooking_EmptySeatList(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "7", echo.Map{"seat_ids": []uint64{}})

    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Equal(t, "seat_ids is required", errorMessage(t, w))
}

func TestBookingHandler_CreateBooking_InvalidEventID(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/zero/bookings", "7", echo.Map{"seat_ids": []uint64{1}})

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_CreateBooking_SeatConflict(t *testing.T) {
    inv, _, r := setupRouter(t)
    inv.reserveErr = fmt.Errorf("%w: seats [2] are not available", model.ErrConflict)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "7", echo.Map{"seat_ids": []uint64{1, 2}})

    assert.Equal(t, http.StatusConflict, w.Code)
    assert.Contains(t, errorMessage(t, w), "seats [2] are not available")
}

func TestBookingHandler_CreateBooking_UnknownSeat(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "7", echo.Map{"seat_ids": []uint64{1, 404}})

    assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_CreateBooking_SeatFromOtherEvent(t *testing.T) {
    inv, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/bookings", "7", echo.Map{"seat_ids": []uint64{1, 3}})

    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Contains(t, errorMessage(t, w), "does not belong to event 9")
    require.Len(t, inv.released, 1, "reserved seats must be released on rejection")
    assert.Equal(t, []uint64{1, 3}, inv.released[0])
}

func TestBookingHandler_GetBooking_InvalidID(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodGet, "/v1/bookings/not-a-uuid", "7", nil)

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_GetBooking_NotFound(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodGet, "/v1/bookings/"+uuid.New().String(), "7", nil)

    assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_GetBooking_ForeignBooking(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 8)

    w := doJSON(t, r, http.MethodGet, "/v1/bookings/"+id, "7", nil)

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandler_GetBooking_UnclassifiedErrorHidden(t *testing.T) {
    _, store, r := setupRouter(t)
    store.detailErr = fmt.Errorf("connection refused")

    w := doJSON(t, r, http.MethodGet, "/v1/bookings/"+uuid.New().String(), "7", nil)

    assert.Equal(t, http.StatusInternalServerError, w.Code)
    assert.Equal(t, "internal error", errorMessage(t, w))
}

func TestBookingHandler_ConfirmBooking_Success(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 7)

    w := doJSON(t, r, http.MethodPost, "/v1/bookings/"+id+"/confirm", "7", nil)

    assert.Equal(t, http.StatusOK, w.Code)

    var resp repository.BookingDetail
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, model.BookingStatusConfirmed, resp.Status)
    assert.NotNil(t, resp.ConfirmedAt)
}

func TestBookingHandler_CancelBooking_WithReason(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 7)

    w := doJSON(t, r, http.MethodPost, "/v1/bookings/"+id+"/cancel", "7", echo.Map{"reason": "changed plans"})

    assert.Equal(t, http.StatusOK, w.Code)

    var resp repository.BookingDetail
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, model.BookingStatusCancelled, resp.Status)
    require.NotNil(t, resp.CancellationReason)
    assert.Equal(t, "changed plans", *resp.CancellationReason)
}

func TestBookingHandler_CancelBooking_AlreadyCancelled(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 7)
    store.details[id].Status = model.BookingStatusCancelled

    w := doJSON(t, r, http.MethodPost, "/v1/bookings/"+id+"/cancel", "7", nil)

    assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandler_ApplyPromo_Success(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 7)

    w := doJSON(t, r, http.MethodPost, "/v1/bookings/"+id+"/promo", "7", echo.Map{"promo_code": "SAVE30"})

    assert.Equal(t, http.StatusOK, w.Code)

    var resp repository.BookingDetail
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, 30.0, resp.DiscountAmount)
    assert.Equal(t, 120.0, resp.FinalAmount)
    require.NotNil(t, resp.PromoCode)
    assert.Equal(t, "SAVE30", *resp.PromoCode)
}

func TestBookingHandler_ApplyPromo_MissingCode(t *testing.T) {
    _, store, r := setupRouter(t)
    id := seedPending(store, 7)

    w := doJSON(t, r, http.MethodPost, "/v1/bookings/"+id+"/promo", "7", echo.Map{})

    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Equal(t, "promo_code is required", errorMessage(t, w))
}

func TestBookingHandler_ListBookings(t *testing.T) {
    _, store, r := setupRouter(t)
    seedPending(store, 7)
    seedPending(store, 8)

    w := doJSON(t, r, http.MethodGet, "/v1/my-bookings", "7", nil)

    assert.Equal(t, http.StatusOK, w.Code)

    var resp struct {
        Items []repository.BookingDetail `json:"items"`
    }
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    require.Len(t, resp.Items, 1)
    assert.Equal(t, uint64(7), resp.Items[0].UserID)
}

func TestBookingHandler_Quote_Success(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodPost, "/v1/events/9/quote", "7", echo.Map{"seat_ids": []uint64{1, 2}})

    assert.Equal(t, http.StatusOK, w.Code)

    var resp service.PricingResult
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, 150.0, resp.Subtotal)
    assert.Equal(t, 150.0, resp.Total)
    assert.Len(t, resp.Items, 2)
}

func TestCartHandler_UnavailableWithoutBackend(t *testing.T) {
    _, _, r := setupRouter(t)

    w := doJSON(t, r, http.MethodGet, "/v1/events/9/cart", "7", nil)

    assert.Equal(t, http.StatusServiceUnavailable, w.Code)
    assert.Equal(t, "cart backend unavailable", errorMessage(t, w))
}

// setupInventoryRouter backs the inventory handler with a sqlmock
// database so admin routes run against the real service and repository.
func setupInventoryRouter(t *testing.T) (sqlmock.Sqlmock, http.Handler) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock: %v", err)
    }
    t.Cleanup(func() { _ = db.Close() })
    h := NewInventoryHandler(service.NewInventoryService(db, repository.NewSeatRepo(db)))

    e := echo.New()
    e.GET("/v1/events/:id/availability", h.Availability)
    g := e.Group("/v1/admin", middleware.Identity())
    g.POST("/seats", h.CreateSeats)
    g.POST("/seats/unavailable", h.MarkUnavailable)
    return mock, e
}

func TestInventoryHandler_Availability(t *testing.T) {
    mock, r := setupInventoryRouter(t)

    cols := []string{"section", "tier", "total", "available", "reserved", "booked", "unavailable", "min_price", "max_price"}
    mock.ExpectQuery(`GROUP BY section, tier`).
        WithArgs(9).
        WillReturnRows(sqlmock.NewRows(cols).AddRow("A", "VIP", 10, 4, 3, 2, 1, 100.0, 150.0))

    w := doJSON(t, r, http.MethodGet, "/v1/events/9/availability", "", nil)

    assert.Equal(t, http.StatusOK, w.Code)

    var resp repository.EventAvailability
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, uint64(9), resp.EventID)
    assert.Equal(t, 10, resp.Total)
    require.Len(t, resp.Sections, 1)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryHandler_Availability_InvalidEventID(t *testing.T) {
    _, r := setupInventoryRouter(t)

    w := doJSON(t, r, http.MethodGet, "/v1/events/abc/availability", "", nil)

    assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryHandler_CreateSeats_Success(t *testing.T) {
    mock, r := setupInventoryRouter(t)

    mock.ExpectExec(`INSERT INTO seats`).
        WillReturnResult(sqlmock.NewResult(1, 2))

    body := echo.Map{
        "event_id": 9,
        "seats": []echo.Map{
            {"section": "A", "row_label": "B", "seat_number": 1, "tier": "VIP", "price": 120},
            {"section": "A", "row_label": "B", "seat_number": 2, "tier": "VIP", "price": 120},
        },
    }
    w := doJSON(t, r, http.MethodPost, "/v1/admin/seats", "1", body)

    assert.Equal(t, http.StatusCreated, w.Code)

    var resp map[string]int
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, 2, resp["created"])
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryHandler_CreateSeats_InvalidSpec(t *testing.T) {
    _, r := setupInventoryRouter(t)

    body := echo.Map{
        "event_id": 9,
        "seats":    []echo.Map{{"row_label": "B", "seat_number": 1}},
    }
    w := doJSON(t, r, http.MethodPost, "/v1/admin/seats", "1", body)

    assert.Equal(t, http.StatusBadRequest, w.Code)
    assert.Contains(t, errorMessage(t, w), "seat 0")
}

func TestInventoryHandler_MarkUnavailable(t *testing.T) {
    mock, r := setupInventoryRouter(t)

    mock.ExpectExec(`SET status = \?, reserved_by = NULL`).
        WithArgs("UNAVAILABLE", 5, "AVAILABLE").
        WillReturnResult(sqlmock.NewResult(0, 1))

    w := doJSON(t, r, http.MethodPost, "/v1/admin/seats/unavailable", "1", echo.Map{"seat_ids": []uint64{5}})

    assert.Equal(t, http.StatusOK, w.Code)

    var resp map[string]int64
    require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
    assert.Equal(t, int64(1), resp["updated"])
    assert.NoError(t, mock.ExpectationsWereMet())
}
