// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types carried on the booking.events queue.
const (
    TypeBookingConfirmed = "booking.confirmed"
    TypeBookingCancelled = "booking.cancelled"
    TypeBookingExpired   = "booking.expired"
)

// BookingEvent is published whenever a booking reaches a terminal
// lifecycle state.  It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.  Reason is only set for cancellations; the monetary
// fields reflect the booking at the moment of the transition.
type BookingEvent struct {
    Type           string   `json:"type"`
    BookingID      string   `json:"booking_id"`
    UserID         uint64   `json:"user_id"`
    EventID        uint64   `json:"event_id"`
    SeatIDs        []uint64 `json:"seat_ids"`
    TotalAmount    float64  `json:"total_amount"`
    DiscountAmount float64  `json:"discount_amount"`
    FinalAmount    float64  `json:"final_amount"`
    Currency       string   `json:"currency"`
    PromoCode      *string  `json:"promo_code,omitempty"`
    Reason         *string  `json:"reason,omitempty"`
    OccurredAt     string   `json:"occurred_at"`
}
