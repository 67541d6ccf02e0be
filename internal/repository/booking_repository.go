package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/gatheraa/event-seat-booking/internal/model"
)

// BookingRepo provides persistence for bookings and their items.
// Bookings group together one or more seats purchased by a user for a
// single event.  Items are stored in the booking_items table and are
// exclusively owned by their booking.  All timestamp fields are assumed
// to be stored in UTC.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying database handle.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateWithItems inserts a booking together with its items in one
// transaction.  IDs must be populated by the caller before the call.
// Timestamps default in the DB; callers needing them back should reload
// the booking afterwards.
func (r *BookingRepo) CreateWithItems(ctx context.Context, b *model.Booking, items []model.BookingItem) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `INSERT INTO bookings (id, user_id, event_id, status, total_amount, discount_amount, final_amount, currency, promo_code, reservation_expires_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var expires interface{}
    if b.ReservationExpiresAt != nil {
        expires = b.ReservationExpiresAt.UTC().Format("2006-01-02 15:04:05")
    }
    var promo interface{}
    if b.PromoCode != nil {
        promo = *b.PromoCode
    }
    if _, err := tx.ExecContext(ctx, q,
        b.ID, b.UserID, b.EventID, string(b.Status),
        b.TotalAmount, b.DiscountAmount, b.FinalAmount, b.Currency,
        promo, expires,
    ); err != nil {
        return err
    }
    if len(items) > 0 {
        query := `INSERT INTO booking_items (id, booking_id, seat_id, unit_price, final_price) VALUES `
        args := make([]interface{}, 0, len(items)*5)
        for i, it := range items {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?)"
            args = append(args, it.ID, it.BookingID, it.SeatID, it.UnitPrice, it.FinalPrice)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// BookingItemDetail is one purchased seat inside a booking payload.
type BookingItemDetail struct {
    ID         string  `json:"id"`
    SeatID     uint64  `json:"seat_id"`
    UnitPrice  float64 `json:"unit_price"`
    FinalPrice float64 `json:"final_price"`
}

// BookingDetail is the full booking payload returned to clients and used
// by the orchestration layer.  Nullable columns map to pointers so
// absent values serialise as JSON null.
type BookingDetail struct {
    ID                   string              `json:"id"`
    UserID               uint64              `json:"user_id"`
    EventID              uint64              `json:"event_id"`
    Status               model.BookingStatus `json:"status"`
    TotalAmount          float64             `json:"total_amount"`
    DiscountAmount       float64             `json:"discount_amount"`
    FinalAmount          float64             `json:"final_amount"`
    Currency             string              `json:"currency"`
    PromoCode            *string             `json:"promo_code"`
    ReservationExpiresAt *time.Time          `json:"reservation_expires_at"`
    ConfirmedAt          *time.Time          `json:"confirmed_at"`
    CancelledAt          *time.Time          `json:"cancelled_at"`
    CancellationReason   *string             `json:"cancellation_reason"`
    Items                []BookingItemDetail `json:"items"`
    CreatedAt            time.Time           `json:"created_at"`
}

// SeatIDs returns the seat IDs referenced by the booking's items, in
// item order.
func (d *BookingDetail) SeatIDs() []uint64 {
    ids := make([]uint64, 0, len(d.Items))
    for _, it := range d.Items {
        ids = append(ids, it.SeatID)
    }
    return ids
}

// bookingColumns is the column list used by every SELECT that scans a
// booking row.  Keep it in sync with scanBookingDetail.
const bookingColumns = `id, user_id, event_id, status, total_amount, discount_amount, final_amount, currency, promo_code, reservation_expires_at, confirmed_at, cancelled_at, cancellation_reason, created_at`

// scanBookingDetail reads one booking row from the given scanner.
func scanBookingDetail(sc interface{ Scan(...interface{}) error }) (BookingDetail, error) {
    var d BookingDetail
    var promo, reason sql.NullString
    var expires, confirmed, cancelled sql.NullTime
    if err := sc.Scan(
        &d.ID, &d.UserID, &d.EventID, &d.Status,
        &d.TotalAmount, &d.DiscountAmount, &d.FinalAmount, &d.Currency,
        &promo, &expires, &confirmed, &cancelled, &reason, &d.CreatedAt,
    ); err != nil {
        return BookingDetail{}, err
    }
    if promo.Valid {
        p := promo.String
        d.PromoCode = &p
    }
    if expires.Valid {
        t := expires.Time.UTC()
        d.ReservationExpiresAt = &t
    }
    if confirmed.Valid {
        t := confirmed.Time.UTC()
        d.ConfirmedAt = &t
    }
    if cancelled.Valid {
        t := cancelled.Time.UTC()
        d.CancelledAt = &t
    }
    if reason.Valid {
        rs := reason.String
        d.CancellationReason = &rs
    }
    d.Items = []BookingItemDetail{}
    return d, nil
}

// GetDetail returns a booking with its items.  Ownership is not checked
// here; callers distinguish a missing booking from a foreign one.  When
// no booking with the given ID exists, sql.ErrNoRows is returned.
func (r *BookingRepo) GetDetail(ctx context.Context, bookingID string) (*BookingDetail, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
    d, err := scanBookingDetail(r.db.QueryRowContext(ctx, q, bookingID))
    if err != nil {
        return nil, err
    }
    // Ordering by seat_id provides deterministic output.
    const itemQ = `SELECT id, seat_id, unit_price, final_price FROM booking_items WHERE booking_id = ? ORDER BY seat_id`
    rows, err := r.db.QueryContext(ctx, itemQ, d.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var it BookingItemDetail
        if err := rows.Scan(&it.ID, &it.SeatID, &it.UnitPrice, &it.FinalPrice); err != nil {
            return nil, err
        }
        d.Items = append(d.Items, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return &d, nil
}

// ListDetailsByUser returns all bookings of a user, newest first, with
// items populated in a single follow-up query.  When no bookings exist,
// an empty slice is returned.
func (r *BookingRepo) ListDetailsByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    index := make(map[string]int)
    for rows.Next() {
        d, err := scanBookingDetail(rows)
        if err != nil {
            return nil, err
        }
        index[d.ID] = len(details)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    return details, r.populateItems(ctx, details, index)
}

// ListExpiredPending returns every PENDING booking whose reservation
// window has passed, with items populated, for the reconciler to expire.
func (r *BookingRepo) ListExpiredPending(ctx context.Context) ([]BookingDetail, error) {
    q := `SELECT ` + bookingColumns + ` FROM bookings
          WHERE status = 'PENDING' AND reservation_expires_at IS NOT NULL AND reservation_expires_at <= UTC_TIMESTAMP()
          ORDER BY reservation_expires_at`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    details := make([]BookingDetail, 0)
    index := make(map[string]int)
    for rows.Next() {
        d, err := scanBookingDetail(rows)
        if err != nil {
            return nil, err
        }
        index[d.ID] = len(details)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }
    return details, r.populateItems(ctx, details, index)
}

// populateItems loads the items for all listed bookings in one query and
// attaches them via the provided id index.
func (r *BookingRepo) populateItems(ctx context.Context, details []BookingDetail, index map[string]int) error {
    ids := make([]interface{}, 0, len(details))
    placeholders := make([]string, 0, len(details))
    for _, d := range details {
        ids = append(ids, d.ID)
        placeholders = append(placeholders, "?")
    }
    itemQuery := `SELECT booking_id, id, seat_id, unit_price, final_price
                  FROM booking_items
                  WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
                  ORDER BY booking_id, seat_id`
    rows, err := r.db.QueryContext(ctx, itemQuery, ids...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        var bid string
        var it BookingItemDetail
        if err := rows.Scan(&bid, &it.ID, &it.SeatID, &it.UnitPrice, &it.FinalPrice); err != nil {
            return err
        }
        idx, ok := index[bid]
        if !ok {
            continue
        }
        details[idx].Items = append(details[idx].Items, it)
    }
    return rows.Err()
}

// Confirm marks a PENDING booking as CONFIRMED and clears its
// reservation window.  It returns the number of rows updated; zero means
// the booking was not PENDING anymore and the caller lost a race.
func (r *BookingRepo) Confirm(ctx context.Context, bookingID string, at time.Time) (int64, error) {
    const q = `UPDATE bookings
               SET status = 'CONFIRMED', confirmed_at = ?, reservation_expires_at = NULL
               WHERE id = ? AND status = 'PENDING'`
    res, err := r.db.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), bookingID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// Cancel marks a PENDING or CONFIRMED booking as CANCELLED, recording
// the time and optional reason.  It returns the number of rows updated;
// zero means the booking was already terminal.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID string, at time.Time, reason *string) (int64, error) {
    const q = `UPDATE bookings
               SET status = 'CANCELLED', cancelled_at = ?, cancellation_reason = ?, reservation_expires_at = NULL
               WHERE id = ? AND status IN ('PENDING', 'CONFIRMED')`
    var rs interface{}
    if reason != nil {
        rs = *reason
    }
    res, err := r.db.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), rs, bookingID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// Expire marks a PENDING booking as EXPIRED.  The status guard keeps a
// booking confirmed between the caller's read and this write from being
// clobbered.  It returns the number of rows updated.
func (r *BookingRepo) Expire(ctx context.Context, bookingID string, at time.Time) (int64, error) {
    const q = `UPDATE bookings
               SET status = 'EXPIRED', cancelled_at = ?, cancellation_reason = 'reservation expired', reservation_expires_at = NULL
               WHERE id = ? AND status = 'PENDING'`
    res, err := r.db.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), bookingID)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// UpdatePricing overwrites a PENDING booking's amounts and promo code
// and rewrites the final price of the given items, all in one
// transaction.  Items are matched by (booking_id, seat_id).  It returns
// model.ErrConflict when the booking is no longer PENDING.
func (r *BookingRepo) UpdatePricing(ctx context.Context, bookingID string, total, discount, final float64, promoCode *string, items []model.BookingItem) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    const q = `UPDATE bookings
               SET total_amount = ?, discount_amount = ?, final_amount = ?, promo_code = ?
               WHERE id = ? AND status = 'PENDING'`
    var promo interface{}
    if promoCode != nil {
        promo = *promoCode
    }
    res, err := tx.ExecContext(ctx, q, total, discount, final, promo, bookingID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err != nil {
        return err
    } else if n == 0 {
        return model.ErrConflict
    }
    const itemQ = `UPDATE booking_items SET final_price = ? WHERE booking_id = ? AND seat_id = ?`
    for _, it := range items {
        if _, err := tx.ExecContext(ctx, itemQ, it.FinalPrice, bookingID, it.SeatID); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
