package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/gatheraa/event-seat-booking/internal/model"
    "github.com/gatheraa/event-seat-booking/internal/queue"
    "github.com/gatheraa/event-seat-booking/internal/repository"
)

// DefaultHoldTTL is how long seats stay reserved for a pending booking
// when no explicit hold duration is configured.
const DefaultHoldTTL = 15 * time.Minute

// seatInventory is the slice of the inventory engine the orchestrator
// consumes.  Reservation is all-or-nothing; release and confirm are
// idempotent bulk transitions.
type seatInventory interface {
    ReserveSeats(ctx context.Context, seatIDs []uint64, userID uint64, holdFor time.Duration) ([]model.Seat, error)
    GetSeats(ctx context.Context, seatIDs []uint64) ([]model.Seat, error)
    ReleaseSeats(ctx context.Context, seatIDs []uint64) (int64, error)
    ConfirmSeats(ctx context.Context, seatIDs []uint64) (int64, error)
}

// bookingStore is the persistence surface the orchestrator consumes.
type bookingStore interface {
    CreateWithItems(ctx context.Context, b *model.Booking, items []model.BookingItem) error
    GetDetail(ctx context.Context, bookingID string) (*repository.BookingDetail, error)
    ListDetailsByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
    ListExpiredPending(ctx context.Context) ([]repository.BookingDetail, error)
    Confirm(ctx context.Context, bookingID string, at time.Time) (int64, error)
    Cancel(ctx context.Context, bookingID string, at time.Time, reason *string) (int64, error)
    Expire(ctx context.Context, bookingID string, at time.Time) (int64, error)
    UpdatePricing(ctx context.Context, bookingID string, total, discount, final float64, promoCode *string, items []model.BookingItem) error
}

// cartClearer clears a user's cart once a booking has been created.
type cartClearer interface {
    Clear(ctx context.Context, userID, eventID uint64) error
}

// BookingService orchestrates the booking saga: it drives the seat
// inventory engine, the pricing engine, booking persistence and cart
// clearing.  The stores commit independently; consistency across them
// comes from compensating actions, not from one ACID transaction.
// Errors are intercepted only at the two points where a compensation is
// defined (pricing failure and persistence failure after a successful
// reservation); everywhere else they propagate unchanged.
type BookingService struct {
    inventory seatInventory
    bookings  bookingStore
    carts     cartClearer // nil when the cart backend is unavailable
    pricing   *PricingEngine
    publish   func(ctx context.Context, ev queue.BookingEvent) error // nil disables events
    holdTTL   time.Duration
    currency  string
    now       func() time.Time
}

// NewBookingService constructs the orchestrator.  carts and publish may
// be nil, in which case cart clearing and event publishing are skipped.
// A non-positive holdTTL falls back to DefaultHoldTTL.
func NewBookingService(
    inventory seatInventory,
    bookings bookingStore,
    carts cartClearer,
    pricing *PricingEngine,
    publish func(ctx context.Context, ev queue.BookingEvent) error,
    holdTTL time.Duration,
    currency string,
) *BookingService {
    if holdTTL <= 0 {
        holdTTL = DefaultHoldTTL
    }
    if currency == "" {
        currency = "USD"
    }
    return &BookingService{
        inventory: inventory,
        bookings:  bookings,
        carts:     carts,
        pricing:   pricing,
        publish:   publish,
        holdTTL:   holdTTL,
        currency:  currency,
        now:       time.Now,
    }
}

// CreateBooking reserves the seats, prices them and persists a PENDING
// booking with one item per priced line, then clears the user's cart
// for the event.  A reservation failure propagates directly since
// nothing has been committed.  Once seats are reserved, any later
// failure releases them before the original error is re-raised; the
// released error itself is only logged so it never masks the cause.
func (s *BookingService) CreateBooking(ctx context.Context, userID, eventID uint64, seatIDs []uint64, promoCode *string, currency string) (*repository.BookingDetail, error) {
    if currency == "" {
        currency = s.currency
    }
    seats, err := s.inventory.ReserveSeats(ctx, seatIDs, userID, s.holdTTL)
    if err != nil {
        return nil, err
    }
    reservedIDs := make([]uint64, 0, len(seats))
    for _, seat := range seats {
        reservedIDs = append(reservedIDs, seat.ID)
    }
    for _, seat := range seats {
        if seat.EventID != eventID {
            s.releaseQuietly(ctx, reservedIDs)
            return nil, fmt.Errorf("%w: seat %d does not belong to event %d", model.ErrBadRequest, seat.ID, eventID)
        }
    }

    priced, err := s.pricing.Price(ctx, seats, promoCode, userID, currency)
    if err != nil {
        s.releaseQuietly(ctx, reservedIDs)
        return nil, err
    }

    now := s.now().UTC()
    expiresAt := now.Add(s.holdTTL)
    b := &model.Booking{
        ID:                   uuid.New().String(),
        UserID:               userID,
        EventID:              eventID,
        Status:               model.BookingStatusPending,
        TotalAmount:          priced.Subtotal,
        DiscountAmount:       priced.DiscountAmount,
        FinalAmount:          priced.Total,
        Currency:             currency,
        PromoCode:            priced.PromoCode,
        ReservationExpiresAt: &expiresAt,
    }
    items := make([]model.BookingItem, 0, len(priced.Items))
    for _, line := range priced.Items {
        items = append(items, model.BookingItem{
            ID:         uuid.New().String(),
            BookingID:  b.ID,
            SeatID:     line.SeatID,
            UnitPrice:  line.BasePrice,
            FinalPrice: line.FinalPrice,
        })
    }
    if err := s.bookings.CreateWithItems(ctx, b, items); err != nil {
        s.releaseQuietly(ctx, reservedIDs)
        return nil, err
    }
    if s.carts != nil {
        if err := s.carts.Clear(ctx, userID, eventID); err != nil {
            s.releaseQuietly(ctx, reservedIDs)
            return nil, err
        }
    }
    detail, err := s.bookings.GetDetail(ctx, b.ID)
    if err != nil {
        s.releaseQuietly(ctx, reservedIDs)
        return nil, err
    }
    return detail, nil
}

// ConfirmBooking finalises a PENDING booking: seats move RESERVED to
// BOOKED and the booking becomes CONFIRMED.  A booking whose
// reservation window has already passed is expired exactly as the
// reconciler would expire it, and the call fails ErrConflict instead
// of confirming.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string, userID uint64) (*repository.BookingDetail, error) {
    detail, err := s.loadOwned(ctx, bookingID, userID)
    if err != nil {
        return nil, err
    }
    if detail.Status != model.BookingStatusPending {
        return nil, fmt.Errorf("%w: booking is %s", model.ErrConflict, detail.Status)
    }
    now := s.now().UTC()
    if detail.ReservationExpiresAt != nil && !detail.ReservationExpiresAt.After(now) {
        if _, err := s.expireBooking(ctx, detail); err != nil {
            return nil, err
        }
        return nil, fmt.Errorf("%w: reservation expired", model.ErrConflict)
    }
    if _, err := s.inventory.ConfirmSeats(ctx, detail.SeatIDs()); err != nil {
        return nil, err
    }
    n, err := s.bookings.Confirm(ctx, bookingID, now)
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, fmt.Errorf("%w: booking is no longer pending", model.ErrConflict)
    }
    updated, err := s.bookings.GetDetail(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    s.publishEvent(ctx, queue.TypeBookingConfirmed, updated, nil)
    return updated, nil
}

// CancelBooking withdraws a PENDING or CONFIRMED booking.  The item
// seats are released unconditionally; seats that are not RESERVED
// anymore are skipped by the release, so cancelling after an expiry or
// a confirmation is safe.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, userID uint64, reason *string) (*repository.BookingDetail, error) {
    detail, err := s.loadOwned(ctx, bookingID, userID)
    if err != nil {
        return nil, err
    }
    if detail.Status == model.BookingStatusCancelled || detail.Status == model.BookingStatusExpired {
        return nil, fmt.Errorf("%w: booking is already %s", model.ErrConflict, detail.Status)
    }
    if _, err := s.inventory.ReleaseSeats(ctx, detail.SeatIDs()); err != nil {
        return nil, err
    }
    n, err := s.bookings.Cancel(ctx, bookingID, s.now().UTC(), reason)
    if err != nil {
        return nil, err
    }
    if n == 0 {
        return nil, fmt.Errorf("%w: booking was finalised concurrently", model.ErrConflict)
    }
    updated, err := s.bookings.GetDetail(ctx, bookingID)
    if err != nil {
        return nil, err
    }
    s.publishEvent(ctx, queue.TypeBookingCancelled, updated, reason)
    return updated, nil
}

// ApplyPromoCode re-prices a PENDING booking's seats with the given
// code and overwrites the booking amounts and the final price of every
// item matched by seat id.  An item whose seat has no line in the fresh
// result keeps its previous final price; the gap is logged rather than
// silently dropped.
func (s *BookingService) ApplyPromoCode(ctx context.Context, bookingID, promoCode string, userID uint64) (*repository.BookingDetail, error) {
    detail, err := s.loadOwned(ctx, bookingID, userID)
    if err != nil {
        return nil, err
    }
    if detail.Status != model.BookingStatusPending {
        return nil, fmt.Errorf("%w: booking is %s", model.ErrConflict, detail.Status)
    }
    seats, err := s.inventory.GetSeats(ctx, detail.SeatIDs())
    if err != nil {
        return nil, err
    }
    priced, err := s.pricing.Price(ctx, seats, &promoCode, userID, detail.Currency)
    if err != nil {
        return nil, err
    }
    lineBySeat := make(map[uint64]PricedItem, len(priced.Items))
    for _, line := range priced.Items {
        lineBySeat[line.SeatID] = line
    }
    matched := make([]model.BookingItem, 0, len(detail.Items))
    for _, it := range detail.Items {
        line, ok := lineBySeat[it.SeatID]
        if !ok {
            log.Printf("booking: item %s (seat %d) of booking %s has no line in the repriced result; final price left unchanged", it.ID, it.SeatID, detail.ID)
            continue
        }
        matched = append(matched, model.BookingItem{
            BookingID:  detail.ID,
            SeatID:     it.SeatID,
            FinalPrice: line.FinalPrice,
        })
    }
    if err := s.bookings.UpdatePricing(ctx, bookingID, priced.Subtotal, priced.DiscountAmount, priced.Total, priced.PromoCode, matched); err != nil {
        if errors.Is(err, model.ErrConflict) {
            return nil, fmt.Errorf("%w: booking is no longer pending", model.ErrConflict)
        }
        return nil, err
    }
    return s.bookings.GetDetail(ctx, bookingID)
}

// GetBooking returns a booking with items after the ownership check.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string, userID uint64) (*repository.BookingDetail, error) {
    return s.loadOwned(ctx, bookingID, userID)
}

// GetUserBookings returns all bookings of the user, newest first.
func (s *BookingService) GetUserBookings(ctx context.Context, userID uint64) ([]repository.BookingDetail, error) {
    return s.bookings.ListDetailsByUser(ctx, userID)
}

// Quote prices the given seats without reserving anything.  It uses the
// same engine as CreateBooking so a quote and the booking that follows
// it agree given an identical validator verdict.
func (s *BookingService) Quote(ctx context.Context, userID, eventID uint64, seatIDs []uint64, promoCode *string, currency string) (*PricingResult, error) {
    if currency == "" {
        currency = s.currency
    }
    seats, err := s.inventory.GetSeats(ctx, seatIDs)
    if err != nil {
        return nil, err
    }
    for _, seat := range seats {
        if seat.EventID != eventID {
            return nil, fmt.Errorf("%w: seat %d does not belong to event %d", model.ErrBadRequest, seat.ID, eventID)
        }
    }
    return s.pricing.Price(ctx, seats, promoCode, userID, currency)
}

// ExpireDueBookings expires every PENDING booking whose reservation
// window has passed: seats are released, the booking becomes EXPIRED
// and an expiry event is published.  Failures on individual bookings
// are logged and skipped so one bad row cannot stall the sweep.  It
// returns the number of bookings expired.
func (s *BookingService) ExpireDueBookings(ctx context.Context) (int, error) {
    due, err := s.bookings.ListExpiredPending(ctx)
    if err != nil {
        return 0, err
    }
    count := 0
    for i := range due {
        expired, err := s.expireBooking(ctx, &due[i])
        if err != nil {
            log.Printf("booking: expiring %s failed: %v", due[i].ID, err)
            continue
        }
        if expired {
            count++
        }
    }
    return count, nil
}

// expireBooking releases the booking's seats and marks it EXPIRED.
// Shared by the reconciler sweep and the lazy path in ConfirmBooking so
// both produce the same end state.  A booking confirmed between the
// caller's read and the status write is left alone, reported as not
// expired.
func (s *BookingService) expireBooking(ctx context.Context, detail *repository.BookingDetail) (bool, error) {
    if _, err := s.inventory.ReleaseSeats(ctx, detail.SeatIDs()); err != nil {
        return false, err
    }
    n, err := s.bookings.Expire(ctx, detail.ID, s.now().UTC())
    if err != nil {
        return false, err
    }
    if n == 0 {
        return false, nil
    }
    s.publishEvent(ctx, queue.TypeBookingExpired, detail, nil)
    return true, nil
}

// loadOwned loads a booking and verifies it belongs to the caller.  A
// missing booking is ErrNotFound; a foreign one is ErrBadRequest.
func (s *BookingService) loadOwned(ctx context.Context, bookingID string, userID uint64) (*repository.BookingDetail, error) {
    detail, err := s.bookings.GetDetail(ctx, bookingID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, fmt.Errorf("%w: booking %s", model.ErrNotFound, bookingID)
        }
        return nil, err
    }
    if detail.UserID != userID {
        return nil, fmt.Errorf("%w: booking belongs to a different user", model.ErrBadRequest)
    }
    return detail, nil
}

// releaseQuietly is the compensation step: it frees the given seats and
// only logs a failure, so the error that triggered the compensation is
// the one the caller sees.
func (s *BookingService) releaseQuietly(ctx context.Context, seatIDs []uint64) {
    if _, err := s.inventory.ReleaseSeats(ctx, seatIDs); err != nil {
        log.Printf("booking: compensation release failed for seats %v: %v", seatIDs, err)
    }
}

// publishEvent emits a lifecycle event when a publisher is configured.
// Events are best effort; the store remains authoritative.
func (s *BookingService) publishEvent(ctx context.Context, eventType string, detail *repository.BookingDetail, reason *string) {
    if s.publish == nil {
        return
    }
    ev := queue.BookingEvent{
        Type:           eventType,
        BookingID:      detail.ID,
        UserID:         detail.UserID,
        EventID:        detail.EventID,
        SeatIDs:        detail.SeatIDs(),
        TotalAmount:    detail.TotalAmount,
        DiscountAmount: detail.DiscountAmount,
        FinalAmount:    detail.FinalAmount,
        Currency:       detail.Currency,
        PromoCode:      detail.PromoCode,
        Reason:         reason,
        OccurredAt:     s.now().UTC().Format(time.RFC3339),
    }
    if err := s.publish(ctx, ev); err != nil {
        log.Printf("booking: publish %s for %s failed: %v", eventType, detail.ID, err)
    }
}
