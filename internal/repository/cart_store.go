package repository

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// DefaultCartTTL is the cart lifetime applied when no explicit TTL is
// configured.  Every cart mutation rewrites the entry with a fresh TTL,
// so the clock restarts on each add or remove.
const DefaultCartTTL = 15 * time.Minute

// CartRecord is the blob stored per (user, event) pair.  The seat list
// is an ordered set: ids appear once, in order of first addition.  The
// cart is advisory only and carries no reservation guarantee.
type CartRecord struct {
    UserID    uint64    `json:"user_id"`
    EventID   uint64    `json:"event_id"`
    SeatIDs   []uint64  `json:"seat_ids"`
    CreatedAt time.Time `json:"created_at"`
}

// CartStore keeps per user seat selections in Redis under a TTL.  There
// is no transactional isolation across concurrent mutations of the same
// key; a lost update is acceptable because checkout is the only
// authoritative gate.
type CartStore struct {
    client *redis.Client
    ttl    time.Duration
}

// NewCartStore returns a CartStore writing entries with the given TTL.
// A non-positive TTL falls back to DefaultCartTTL.  The client must be
// a connected Redis client; callers without one should not construct a
// store and should degrade instead.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
    if ttl <= 0 {
        ttl = DefaultCartTTL
    }
    return &CartStore{client: client, ttl: ttl}
}

// cartKey builds the Redis key for a user's cart on one event.
func cartKey(userID, eventID uint64) string {
    return fmt.Sprintf("cart:%d:%d", userID, eventID)
}

// load fetches and unmarshals the cart record, returning nil when the
// key does not exist.
func (s *CartStore) load(ctx context.Context, userID, eventID uint64) (*CartRecord, error) {
    raw, err := s.client.Get(ctx, cartKey(userID, eventID)).Bytes()
    if err != nil {
        if errors.Is(err, redis.Nil) {
            return nil, nil
        }
        return nil, err
    }
    var rec CartRecord
    if err := json.Unmarshal(raw, &rec); err != nil {
        return nil, err
    }
    return &rec, nil
}

// save rewrites the cart record with a full TTL.
func (s *CartStore) save(ctx context.Context, rec *CartRecord) error {
    raw, err := json.Marshal(rec)
    if err != nil {
        return err
    }
    return s.client.Set(ctx, cartKey(rec.UserID, rec.EventID), raw, s.ttl).Err()
}

// AddSeats unions the given seat IDs into the user's cart for the event
// and rewrites the entry with a fresh TTL.  A missing cart is created.
// The updated record is returned.
func (s *CartStore) AddSeats(ctx context.Context, userID, eventID uint64, seatIDs []uint64) (*CartRecord, error) {
    rec, err := s.load(ctx, userID, eventID)
    if err != nil {
        return nil, err
    }
    if rec == nil {
        rec = &CartRecord{UserID: userID, EventID: eventID, SeatIDs: []uint64{}, CreatedAt: time.Now().UTC()}
    }
    rec.SeatIDs = mergeSeatIDs(rec.SeatIDs, seatIDs)
    if err := s.save(ctx, rec); err != nil {
        return nil, err
    }
    return rec, nil
}

// RemoveSeats filters the given seat IDs out of the cart and rewrites
// the entry with a fresh TTL.  A missing cart becomes an empty entry.
// The updated record is returned.
func (s *CartStore) RemoveSeats(ctx context.Context, userID, eventID uint64, seatIDs []uint64) (*CartRecord, error) {
    rec, err := s.load(ctx, userID, eventID)
    if err != nil {
        return nil, err
    }
    if rec == nil {
        rec = &CartRecord{UserID: userID, EventID: eventID, SeatIDs: []uint64{}, CreatedAt: time.Now().UTC()}
    }
    rec.SeatIDs = filterSeatIDs(rec.SeatIDs, seatIDs)
    if err := s.save(ctx, rec); err != nil {
        return nil, err
    }
    return rec, nil
}

// Clear deletes the cart entry.  Deleting an absent cart is not an
// error.
func (s *CartStore) Clear(ctx context.Context, userID, eventID uint64) error {
    return s.client.Del(ctx, cartKey(userID, eventID)).Err()
}

// Get returns the cart record together with its remaining TTL.  An
// absent cart yields an empty record and zero TTL rather than an error.
func (s *CartStore) Get(ctx context.Context, userID, eventID uint64) (*CartRecord, time.Duration, error) {
    rec, err := s.load(ctx, userID, eventID)
    if err != nil {
        return nil, 0, err
    }
    if rec == nil {
        return &CartRecord{UserID: userID, EventID: eventID, SeatIDs: []uint64{}}, 0, nil
    }
    ttl, err := s.client.TTL(ctx, cartKey(userID, eventID)).Result()
    if err != nil {
        return nil, 0, err
    }
    if ttl < 0 {
        // -2 means the key vanished between the calls, -1 means no expiry.
        ttl = 0
    }
    return rec, ttl, nil
}

// TTL returns the remaining lifetime of the cart, zero when absent.
func (s *CartStore) TTL(ctx context.Context, userID, eventID uint64) (time.Duration, error) {
    ttl, err := s.client.TTL(ctx, cartKey(userID, eventID)).Result()
    if err != nil {
        return 0, err
    }
    if ttl < 0 {
        return 0, nil
    }
    return ttl, nil
}

// mergeSeatIDs unions add into existing, keeping each id once in order
// of first appearance.
func mergeSeatIDs(existing, add []uint64) []uint64 {
    seen := make(map[uint64]struct{}, len(existing)+len(add))
    merged := make([]uint64, 0, len(existing)+len(add))
    for _, id := range existing {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            merged = append(merged, id)
        }
    }
    for _, id := range add {
        if _, ok := seen[id]; !ok {
            seen[id] = struct{}{}
            merged = append(merged, id)
        }
    }
    return merged
}

// filterSeatIDs removes every id in remove from existing, preserving
// the order of the remaining ids.
func filterSeatIDs(existing, remove []uint64) []uint64 {
    drop := make(map[uint64]struct{}, len(remove))
    for _, id := range remove {
        drop[id] = struct{}{}
    }
    kept := make([]uint64, 0, len(existing))
    for _, id := range existing {
        if _, ok := drop[id]; !ok {
            kept = append(kept, id)
        }
    }
    return kept
}
