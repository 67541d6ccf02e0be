package queue

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestFormatEventLine_Confirmed(t *testing.T) {
    line := formatEventLine(BookingEvent{
        Type:        TypeBookingConfirmed,
        BookingID:   "b1",
        UserID:      7,
        EventID:     9,
        SeatIDs:     []uint64{1, 2},
        TotalAmount: 150,
        FinalAmount: 150,
        Currency:    "USD",
        OccurredAt:  "2025-06-01T12:00:00Z",
    })

    assert.Contains(t, line, "Booking confirmed")
    assert.Contains(t, line, "booking_id=b1")
    assert.Contains(t, line, "seats=[1,2]")
    assert.Contains(t, line, "final=150.00 USD")
    assert.NotContains(t, line, "reason=")
}

func TestFormatEventLine_CancelledWithReasonAndPromo(t *testing.T) {
    reason := "changed plans"
    promo := "SAVE30"
    line := formatEventLine(BookingEvent{
        Type:           TypeBookingCancelled,
        BookingID:      "b2",
        SeatIDs:        []uint64{5},
        DiscountAmount: 30,
        Currency:       "USD",
        Reason:         &reason,
        PromoCode:      &promo,
        OccurredAt:     "2025-06-01T12:00:00Z",
    })

    assert.Contains(t, line, "Booking cancelled")
    assert.Contains(t, line, `reason="changed plans"`)
    assert.Contains(t, line, "promo=SAVE30")
}

func TestFormatEventLine_UnknownType(t *testing.T) {
    line := formatEventLine(BookingEvent{Type: "booking.refunded", SeatIDs: []uint64{}})

    assert.Contains(t, line, "Booking event booking.refunded")
}
