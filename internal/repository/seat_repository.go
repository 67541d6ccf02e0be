package repository // repository defines data access for seats

import (
    "context"      // context allows query cancellation and timeouts
    "database/sql" // sql provides DB primitives
    "strings"      // strings builds IN clause placeholders
    "time"         // time for hold expirations

    "github.com/gatheraa/event-seat-booking/internal/model"
)

// SeatRepo encapsulates database operations for the seats table.  Seat
// status transitions are version guarded: every UPDATE increments
// seats.version, so concurrent writers are detected by checking the
// affected row count.  All timestamps are stored and compared in UTC.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

// DB exposes the underlying database handle so callers can open
// transactions spanning multiple repository calls.
func (r *SeatRepo) DB() *sql.DB { return r.db }

// seatColumns is the column list used by every SELECT that scans a full
// seat row.  Keep it in sync with scanSeat.
const seatColumns = `id, event_id, section, row_label, seat_number, tier, price, status, reserved_by, reserved_until, version, created_at, updated_at`

// scanSeat reads one seat row from the given scanner.  Nullable columns
// are converted to pointers on the model.
func scanSeat(sc interface{ Scan(...interface{}) error }) (model.Seat, error) {
    var s model.Seat
    var reservedBy sql.NullInt64
    var reservedUntil sql.NullTime
    if err := sc.Scan(
        &s.ID, &s.EventID, &s.Section, &s.RowLabel, &s.SeatNumber, &s.Tier,
        &s.Price, &s.Status, &reservedBy, &reservedUntil, &s.Version,
        &s.CreatedAt, &s.UpdatedAt,
    ); err != nil {
        return model.Seat{}, err
    }
    if reservedBy.Valid {
        uid := uint64(reservedBy.Int64)
        s.ReservedBy = &uid
    }
    if reservedUntil.Valid {
        t := reservedUntil.Time.UTC()
        s.ReservedUntil = &t
    }
    return s, nil
}

// GetByIDsTx loads the seat rows for the given IDs within the provided
// transaction, ordered by id.  Missing IDs simply produce fewer rows;
// callers that need every requested seat must compare the returned count
// against the requested count.  Passing an empty slice returns an empty
// slice and nil error.
func (r *SeatRepo) GetByIDsTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) ([]model.Seat, error) {
    if len(seatIDs) == 0 {
        return []model.Seat{}, nil
    }
    placeholders := make([]string, 0, len(seatIDs))
    args := make([]interface{}, 0, len(seatIDs))
    for _, id := range seatIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    query := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id`
    rows, err := tx.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]model.Seat, 0, len(seatIDs))
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}

// GetByIDs is the autocommit variant of GetByIDsTx for read-only
// callers that do not need transactional consistency, such as quotes.
func (r *SeatRepo) GetByIDs(ctx context.Context, seatIDs []uint64) ([]model.Seat, error) {
    if len(seatIDs) == 0 {
        return []model.Seat{}, nil
    }
    placeholders := make([]string, 0, len(seatIDs))
    args := make([]interface{}, 0, len(seatIDs))
    for _, id := range seatIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    query := `SELECT ` + seatColumns + ` FROM seats WHERE id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id`
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]model.Seat, 0, len(seatIDs))
    for rows.Next() {
        s, err := scanSeat(rows)
        if err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return seats, nil
}

// ReserveTx transitions a single seat to RESERVED with the given holder
// and expiry, guarded by the version read earlier.  It returns true when
// the row was updated and false when the guard matched nothing, meaning
// another writer advanced the version since the caller's read.  The
// caller decides whether a false result aborts the whole transaction.
func (r *SeatRepo) ReserveTx(ctx context.Context, tx *sql.Tx, seatID uint64, version uint32, userID uint64, until time.Time) (bool, error) {
    const q = `UPDATE seats
               SET status = 'RESERVED', reserved_by = ?, reserved_until = ?, version = version + 1
               WHERE id = ? AND version = ?`
    res, err := tx.ExecContext(ctx, q, userID, until.UTC().Format("2006-01-02 15:04:05"), seatID, version)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// BulkUpdateStatusTx moves every listed seat currently in status from to
// status to, clearing the hold columns, within the provided transaction.
// Seats not in the from status are left untouched, which makes the
// operation idempotent and safe to call from compensation paths.  It
// returns the number of seats actually transitioned.
func (r *SeatRepo) BulkUpdateStatusTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64, from, to model.SeatStatus) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    query, args := bulkStatusUpdate(seatIDs, from, to)
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// BulkUpdateStatus is the autocommit variant of BulkUpdateStatusTx for
// callers performing a single transition outside a larger transaction.
func (r *SeatRepo) BulkUpdateStatus(ctx context.Context, seatIDs []uint64, from, to model.SeatStatus) (int64, error) {
    if len(seatIDs) == 0 {
        return 0, nil
    }
    query, args := bulkStatusUpdate(seatIDs, from, to)
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// bulkStatusUpdate builds the guarded bulk transition statement shared by
// the transactional and autocommit variants.
func bulkStatusUpdate(seatIDs []uint64, from, to model.SeatStatus) (string, []interface{}) {
    placeholders := make([]string, 0, len(seatIDs))
    args := make([]interface{}, 0, len(seatIDs)+2)
    args = append(args, string(to))
    for _, id := range seatIDs {
        placeholders = append(placeholders, "?")
        args = append(args, id)
    }
    args = append(args, string(from))
    query := `UPDATE seats
              SET status = ?, reserved_by = NULL, reserved_until = NULL, version = version + 1
              WHERE id IN (` + strings.Join(placeholders, ",") + `) AND status = ?`
    return query, args
}

// ExpireReservationsTx releases every RESERVED seat whose hold has
// lapsed and returns the seat IDs that were released.  A hold is
// considered lapsed when reserved_until is less than or equal to the
// current UTC time.  The select and the update share one predicate and
// run in the provided transaction so the returned IDs match exactly the
// rows released.  When nothing has lapsed it returns an empty slice and
// nil error.
func (r *SeatRepo) ExpireReservationsTx(ctx context.Context, tx *sql.Tx) ([]uint64, error) {
    // Query all seat IDs with lapsed holds.
    rows, err := tx.QueryContext(ctx,
        `SELECT id FROM seats WHERE status = 'RESERVED' AND reserved_until IS NOT NULL AND reserved_until <= UTC_TIMESTAMP()`,
    )
    if err != nil {
        return nil, err
    }
    var expired []uint64
    for rows.Next() {
        var id uint64
        if scanErr := rows.Scan(&id); scanErr != nil {
            rows.Close()
            return nil, scanErr
        }
        expired = append(expired, id)
    }
    if err = rows.Close(); err != nil {
        return nil, err
    }
    if len(expired) == 0 {
        return []uint64{}, nil
    }
    // Release the lapsed holds.
    _, err = tx.ExecContext(ctx,
        `UPDATE seats
         SET status = 'AVAILABLE', reserved_by = NULL, reserved_until = NULL, version = version + 1
         WHERE status = 'RESERVED' AND reserved_until IS NOT NULL AND reserved_until <= UTC_TIMESTAMP()`,
    )
    if err != nil {
        return nil, err
    }
    return expired, nil
}

// CreateBulk inserts multiple seat records in one statement.  Only the
// identifying columns, tier, price, status and version are inserted;
// timestamps default in the DB.  The ID fields of the passed structures
// are not populated.  A duplicate (event, section, row, number) violates
// the table's unique key and is reported as ErrConflict.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (event_id, section, row_label, seat_number, tier, price, status, version) VALUES `
    args := make([]interface{}, 0, len(seats)*8)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?, ?)"
        args = append(args, s.EventID, s.Section, s.RowLabel, s.SeatNumber, s.Tier, s.Price, string(s.Status), s.Version)
    }
    if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
        if strings.Contains(err.Error(), "Duplicate entry") {
            return model.ErrConflict
        }
        return err
    }
    return nil
}

// TierAvailability aggregates seat counts and the price range for one
// tier within a section.
type TierAvailability struct {
    Tier        string  `json:"tier"`
    Total       int     `json:"total"`
    Available   int     `json:"available"`
    Reserved    int     `json:"reserved"`
    Booked      int     `json:"booked"`
    Unavailable int     `json:"unavailable"`
    MinPrice    float64 `json:"min_price"`
    MaxPrice    float64 `json:"max_price"`
}

// SectionAvailability aggregates seat counts for one section of the
// venue together with its per tier breakdown.
type SectionAvailability struct {
    Section     string             `json:"section"`
    Total       int                `json:"total"`
    Available   int                `json:"available"`
    Reserved    int                `json:"reserved"`
    Booked      int                `json:"booked"`
    Unavailable int                `json:"unavailable"`
    Tiers       []TierAvailability `json:"tiers"`
}

// EventAvailability is the full availability report for an event,
// returned by availability queries for display to customers.
type EventAvailability struct {
    EventID     uint64                `json:"event_id"`
    Total       int                   `json:"total"`
    Available   int                   `json:"available"`
    Reserved    int                   `json:"reserved"`
    Booked      int                   `json:"booked"`
    Unavailable int                   `json:"unavailable"`
    Sections    []SectionAvailability `json:"sections"`
}

// AvailabilityByEvent aggregates seat counts for an event grouped by
// section and tier, with min and max prices per tier.  An event with no
// seats yields an empty report rather than an error.  Ordering by
// section then tier provides deterministic output.
func (r *SeatRepo) AvailabilityByEvent(ctx context.Context, eventID uint64) (*EventAvailability, error) {
    const q = `SELECT section, tier, COUNT(*),
                      SUM(status = 'AVAILABLE'), SUM(status = 'RESERVED'),
                      SUM(status = 'BOOKED'), SUM(status = 'UNAVAILABLE'),
                      MIN(price), MAX(price)
               FROM seats
               WHERE event_id = ?
               GROUP BY section, tier
               ORDER BY section, tier`
    rows, err := r.db.QueryContext(ctx, q, eventID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    report := &EventAvailability{EventID: eventID, Sections: []SectionAvailability{}}
    // Track the index of each section for appending its tier rows.
    index := make(map[string]int)
    for rows.Next() {
        var section string
        var tier TierAvailability
        if err := rows.Scan(
            &section, &tier.Tier, &tier.Total,
            &tier.Available, &tier.Reserved, &tier.Booked, &tier.Unavailable,
            &tier.MinPrice, &tier.MaxPrice,
        ); err != nil {
            return nil, err
        }
        idx, ok := index[section]
        if !ok {
            idx = len(report.Sections)
            index[section] = idx
            report.Sections = append(report.Sections, SectionAvailability{Section: section, Tiers: []TierAvailability{}})
        }
        sec := &report.Sections[idx]
        sec.Tiers = append(sec.Tiers, tier)
        sec.Total += tier.Total
        sec.Available += tier.Available
        sec.Reserved += tier.Reserved
        sec.Booked += tier.Booked
        sec.Unavailable += tier.Unavailable
        report.Total += tier.Total
        report.Available += tier.Available
        report.Reserved += tier.Reserved
        report.Booked += tier.Booked
        report.Unavailable += tier.Unavailable
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return report, nil
}
