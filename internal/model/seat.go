package model

import "time"

// SeatStatus enumerates the lifecycle states of a seat.  The zero
// value is not meaningful; seats are always created with an explicit
// status.
type SeatStatus string

const (
    SeatStatusAvailable   SeatStatus = "AVAILABLE"   // open for reservation
    SeatStatusReserved    SeatStatus = "RESERVED"    // held for a user until reserved_until
    SeatStatusBooked      SeatStatus = "BOOKED"      // sold as part of a confirmed booking
    SeatStatusUnavailable SeatStatus = "UNAVAILABLE" // blocked by an operator
)

// Seat describes a single sellable seat of an event.  Seats are
// uniquely identified by their event, section, row label and seat
// number.  The tier determines the price band the seat belongs to.
// Status changes are protected by the Version column: every update
// matches on (id, version) and bumps the version, so concurrent
// transactions racing for the same seat cannot both succeed.
//
// ReservedBy and ReservedUntil are populated while the seat is
// RESERVED and cleared on release.  A RESERVED seat whose
// reserved_until lies in the past is treated as expired by both the
// background sweeper and the confirmation path.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event to which this seat belongs.
//  Section       – named block of the venue (e.g. "ORCHESTRA").
//  RowLabel      – letter or string designating the row.
//  SeatNumber    – number of the seat within the row.
//  Tier          – price tier of the seat (e.g. "VIP", "STANDARD").
//  Price         – base price for this seat.
//  Status        – state of the seat (AVAILABLE, RESERVED, BOOKED,
//                  UNAVAILABLE).
//  ReservedBy    – user currently holding the seat, if any.
//  ReservedUntil – expiry of the current hold, if any.
//  Version       – optimistic locking field to handle concurrent
//                  updates.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Seat struct {
    ID            uint64     // seats.id
    EventID       uint64     // seats.event_id
    Section       string     // seats.section
    RowLabel      string     // seats.row_label
    SeatNumber    uint32     // seats.seat_number
    Tier          string     // seats.tier
    Price         float64    // seats.price
    Status        SeatStatus // seats.status
    ReservedBy    *uint64    // seats.reserved_by (nullable)
    ReservedUntil *time.Time // seats.reserved_until (nullable)
    Version       uint32     // seats.version
    CreatedAt     time.Time  // seats.created_at
    UpdatedAt     time.Time  // seats.updated_at
}
