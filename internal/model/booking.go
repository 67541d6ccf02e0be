package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
    BookingStatusPending   BookingStatus = "PENDING"   // created, awaiting confirmation
    BookingStatusConfirmed BookingStatus = "CONFIRMED" // paid for and finalised
    BookingStatusCancelled BookingStatus = "CANCELLED" // withdrawn by the user
    BookingStatusExpired   BookingStatus = "EXPIRED"   // reservation ran out before confirmation
)

// Booking records a user's purchase attempt for a set of seats of a
// single event.  A booking starts out PENDING with its seats reserved
// until ReservationExpiresAt; it must be confirmed before that moment
// or it becomes EXPIRED and the seats return to the open pool.
// Monetary fields carry the outcome of pricing: TotalAmount is the sum
// of the base prices, DiscountAmount what a promo code removed, and
// FinalAmount what the user actually pays.
//
// Fields:
//  ID                   – primary key, a UUID string.
//  UserID               – user who owns the booking.
//  EventID              – event the seats belong to.
//  Status               – state of the booking (PENDING, CONFIRMED,
//                         CANCELLED, EXPIRED).
//  TotalAmount          – sum of base seat prices before discount.
//  DiscountAmount       – absolute discount applied by a promo code.
//  FinalAmount          – amount payable after discount.
//  Currency             – ISO currency code of the amounts.
//  PromoCode            – promo code applied, if any.
//  ReservationExpiresAt – deadline for confirming the booking.
//  ConfirmedAt          – set when the booking is confirmed.
//  CancelledAt          – set when the booking is cancelled or expired.
//  CancellationReason   – free text recorded on cancellation.
//  CreatedAt            – creation timestamp.
//  UpdatedAt            – last update timestamp.
type Booking struct {
    ID                   string        // bookings.id
    UserID               uint64        // bookings.user_id
    EventID              uint64        // bookings.event_id
    Status               BookingStatus // bookings.status
    TotalAmount          float64       // bookings.total_amount
    DiscountAmount       float64       // bookings.discount_amount
    FinalAmount          float64       // bookings.final_amount
    Currency             string        // bookings.currency
    PromoCode            *string       // bookings.promo_code (nullable)
    ReservationExpiresAt *time.Time    // bookings.reservation_expires_at (nullable)
    ConfirmedAt          *time.Time    // bookings.confirmed_at (nullable)
    CancelledAt          *time.Time    // bookings.cancelled_at (nullable)
    CancellationReason   *string       // bookings.cancellation_reason (nullable)
    CreatedAt            time.Time     // bookings.created_at
    UpdatedAt            time.Time     // bookings.updated_at
}

// BookingItem links a booking to one purchased seat and freezes the
// prices that applied at purchase time.  UnitPrice is the seat's base
// price when the booking was created; FinalPrice is what the seat
// costs after the booking's discount was spread across its items.
//
// Fields:
//  ID         – primary key, a UUID string.
//  BookingID  – reference to the owning booking.
//  SeatID     – seat that has been purchased.
//  UnitPrice  – base price captured at booking time.
//  FinalPrice – per seat price after discount allocation.
//  CreatedAt  – creation timestamp.
type BookingItem struct {
    ID         string    // booking_items.id
    BookingID  string    // booking_items.booking_id
    SeatID     uint64    // booking_items.seat_id
    UnitPrice  float64   // booking_items.unit_price
    FinalPrice float64   // booking_items.final_price
    CreatedAt  time.Time // booking_items.created_at
}
