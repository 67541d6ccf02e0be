// Package scheduler runs the periodic expiry sweep.  Each tick expires
// every PENDING booking whose reservation window has passed and then
// releases any reserved seat whose hold lapsed without a live booking,
// so a crash between the two stores heals on the next pass.
package scheduler

import (
    "context"
    "log"
    "time"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

type bookingExpirer interface {
    ExpireDueBookings(ctx context.Context) (int, error)
}

type reservationExpirer interface {
    ExpireReservations(ctx context.Context) ([]uint64, error)
}

// Scheduler drives the sweep on a fixed interval.  Ticks run
// synchronously on the loop goroutine, so two sweeps never overlap.
type Scheduler struct {
    bookings  bookingExpirer
    inventory reservationExpirer
    interval  time.Duration
}

func New(bookings bookingExpirer, inventory reservationExpirer, interval time.Duration) *Scheduler {
    if interval <= 0 {
        interval = DefaultSweepInterval
    }
    return &Scheduler{
        bookings:  bookings,
        inventory: inventory,
        interval:  interval,
    }
}

// Start blocks until ctx is cancelled, running one sweep per interval.
func (s *Scheduler) Start(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()

    log.Printf("scheduler: expiry sweep started (interval %s)", s.interval)

    for {
        select {
        case <-ctx.Done():
            log.Println("scheduler: expiry sweep stopped")
            return
        case <-ticker.C:
            s.tick(ctx)
        }
    }
}

func (s *Scheduler) tick(ctx context.Context) {
    expired, err := s.bookings.ExpireDueBookings(ctx)
    if err != nil {
        log.Printf("scheduler: booking sweep failed: %v", err)
    } else if expired > 0 {
        log.Printf("scheduler: expired %d overdue booking(s)", expired)
    }

    released, err := s.inventory.ExpireReservations(ctx)
    if err != nil {
        log.Printf("scheduler: reservation sweep failed: %v", err)
        return
    }
    if len(released) > 0 {
        log.Printf("scheduler: released %d orphaned seat hold(s): %v", len(released), released)
    }
}
