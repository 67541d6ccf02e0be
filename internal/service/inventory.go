package service

import (
    "context"
    "database/sql"
    "fmt"
    "sort"
    "time"

    "github.com/gatheraa/event-seat-booking/internal/model"
    "github.com/gatheraa/event-seat-booking/internal/repository"
)

// InventoryService owns the seat state machine.  All multi-seat
// transitions run inside a single database transaction so callers never
// observe a partially applied batch.  Races between concurrent writers
// are resolved by the per row version guard in the repository, not by
// in-process locks; losing a race surfaces as ErrConflict.
type InventoryService struct {
    db    *sql.DB
    seats *repository.SeatRepo
}

// NewInventoryService constructs an InventoryService.  The DB handle
// must be the one the repository is bound to.
func NewInventoryService(db *sql.DB, seats *repository.SeatRepo) *InventoryService {
    return &InventoryService{db: db, seats: seats}
}

// dedupeIDs removes duplicate ids, preserving first-appearance order.
// A request naming the same seat twice must not be read as two seats.
func dedupeIDs(ids []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(ids))
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            out = append(out, id)
        }
    }
    return out
}

// ReserveSeats transitions all requested seats from AVAILABLE to
// RESERVED for the given user in one transaction, holding them until
// now+holdFor.  The result is all-or-nothing: if any seat is missing
// (ErrNotFound), not AVAILABLE (ErrConflict naming every offending
// seat), or modified concurrently between the read and the guarded
// write (ErrConflict naming that seat), the whole batch rolls back.
// On success the reserved seats are returned in request order.
func (s *InventoryService) ReserveSeats(ctx context.Context, seatIDs []uint64, userID uint64, holdFor time.Duration) ([]model.Seat, error) {
    seatIDs = dedupeIDs(seatIDs)
    if len(seatIDs) == 0 {
        return nil, fmt.Errorf("%w: seat list is empty", model.ErrBadRequest)
    }
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    loaded, err := s.seats.GetByIDsTx(ctx, tx, seatIDs)
    if err != nil {
        return nil, err
    }
    byID := make(map[uint64]model.Seat, len(loaded))
    for _, seat := range loaded {
        byID[seat.ID] = seat
    }
    if len(loaded) != len(seatIDs) {
        missing := make([]uint64, 0, len(seatIDs)-len(loaded))
        for _, id := range seatIDs {
            if _, ok := byID[id]; !ok {
                missing = append(missing, id)
            }
        }
        return nil, fmt.Errorf("%w: seats %v do not exist", model.ErrNotFound, missing)
    }
    var unavailable []uint64
    for _, id := range seatIDs {
        if byID[id].Status != model.SeatStatusAvailable {
            unavailable = append(unavailable, id)
        }
    }
    if len(unavailable) > 0 {
        return nil, fmt.Errorf("%w: seats %v are not available", model.ErrConflict, unavailable)
    }

    until := time.Now().UTC().Add(holdFor)
    // Guarded updates run in ascending id order so concurrent batches
    // over the same seats acquire row locks in the same order.
    writeOrder := make([]uint64, len(seatIDs))
    copy(writeOrder, seatIDs)
    sort.Slice(writeOrder, func(i, j int) bool { return writeOrder[i] < writeOrder[j] })
    for _, id := range writeOrder {
        seat := byID[id]
        ok, err := s.seats.ReserveTx(ctx, tx, seat.ID, seat.Version, userID, until)
        if err != nil {
            return nil, err
        }
        if !ok {
            // Another writer advanced the version since our read.  The
            // deferred rollback undoes every reservation made so far.
            return nil, fmt.Errorf("%w: seat %d was modified concurrently", model.ErrConflict, seat.ID)
        }
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true

    reserved := make([]model.Seat, 0, len(seatIDs))
    for _, id := range seatIDs {
        seat := byID[id]
        seat.Status = model.SeatStatusReserved
        uid := userID
        seat.ReservedBy = &uid
        u := until
        seat.ReservedUntil = &u
        seat.Version++
        reserved = append(reserved, seat)
    }
    return reserved, nil
}

// GetSeats loads the requested seats without reserving anything,
// returned in request order.  Missing ids fail ErrNotFound.  Used by
// the quote path, which prices seats it has no claim on.
func (s *InventoryService) GetSeats(ctx context.Context, seatIDs []uint64) ([]model.Seat, error) {
    seatIDs = dedupeIDs(seatIDs)
    if len(seatIDs) == 0 {
        return nil, fmt.Errorf("%w: seat list is empty", model.ErrBadRequest)
    }
    loaded, err := s.seats.GetByIDs(ctx, seatIDs)
    if err != nil {
        return nil, err
    }
    byID := make(map[uint64]model.Seat, len(loaded))
    for _, seat := range loaded {
        byID[seat.ID] = seat
    }
    if len(loaded) != len(seatIDs) {
        missing := make([]uint64, 0, len(seatIDs)-len(loaded))
        for _, id := range seatIDs {
            if _, ok := byID[id]; !ok {
                missing = append(missing, id)
            }
        }
        return nil, fmt.Errorf("%w: seats %v do not exist", model.ErrNotFound, missing)
    }
    ordered := make([]model.Seat, 0, len(seatIDs))
    for _, id := range seatIDs {
        ordered = append(ordered, byID[id])
    }
    return ordered, nil
}

// ReleaseSeats returns whichever of the given seats are currently
// RESERVED to AVAILABLE, clearing their hold columns.  Seats in any
// other state are silently skipped, which makes release safe as a
// compensating action called from an unknown prior state.  It returns
// the number of seats actually released.
func (s *InventoryService) ReleaseSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
    return s.seats.BulkUpdateStatus(ctx, dedupeIDs(seatIDs), model.SeatStatusReserved, model.SeatStatusAvailable)
}

// ConfirmSeats moves whichever of the given seats are currently
// RESERVED to BOOKED.  Seats in any other state are silently skipped,
// so repeated confirmations are harmless.  It returns the number of
// seats confirmed.
func (s *InventoryService) ConfirmSeats(ctx context.Context, seatIDs []uint64) (int64, error) {
    return s.seats.BulkUpdateStatus(ctx, dedupeIDs(seatIDs), model.SeatStatusReserved, model.SeatStatusBooked)
}

// MarkUnavailable withdraws AVAILABLE seats from sale.  Seats in any
// other state are skipped.  It returns the number of seats withdrawn.
func (s *InventoryService) MarkUnavailable(ctx context.Context, seatIDs []uint64) (int64, error) {
    return s.seats.BulkUpdateStatus(ctx, dedupeIDs(seatIDs), model.SeatStatusAvailable, model.SeatStatusUnavailable)
}

// MarkAvailable returns UNAVAILABLE seats to sale.  Seats in any other
// state are skipped.  It returns the number of seats restored.
func (s *InventoryService) MarkAvailable(ctx context.Context, seatIDs []uint64) (int64, error) {
    return s.seats.BulkUpdateStatus(ctx, dedupeIDs(seatIDs), model.SeatStatusUnavailable, model.SeatStatusAvailable)
}

// ExpireReservations releases every RESERVED seat whose hold has lapsed
// and returns the released seat IDs.  It runs in its own transaction
// and is independent of booking state: it reclaims holds even when no
// booking row points at them.
func (s *InventoryService) ExpireReservations(ctx context.Context) ([]uint64, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    expired, err := s.seats.ExpireReservationsTx(ctx, tx)
    if err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return expired, nil
}

// Availability reports seat counts for an event grouped by section and
// tier, with per tier price ranges.
func (s *InventoryService) Availability(ctx context.Context, eventID uint64) (*repository.EventAvailability, error) {
    return s.seats.AvailabilityByEvent(ctx, eventID)
}

// CreateSeats bulk-inserts new seats for an event.  Every seat starts
// AVAILABLE at version 1 regardless of what the caller set.  A seat
// colliding with an existing (event, section, row, number) position
// fails ErrConflict.
func (s *InventoryService) CreateSeats(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return fmt.Errorf("%w: seat list is empty", model.ErrBadRequest)
    }
    for i := range seats {
        seats[i].Status = model.SeatStatusAvailable
        seats[i].Version = 1
    }
    if err := s.seats.CreateBulk(ctx, seats); err != nil {
        if err == model.ErrConflict {
            return fmt.Errorf("%w: duplicate seat position", model.ErrConflict)
        }
        return err
    }
    return nil
}
