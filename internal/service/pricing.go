package service

import (
    "context"
    "fmt"
    "math"

    "github.com/gatheraa/event-seat-booking/internal/coupon"
    "github.com/gatheraa/event-seat-booking/internal/model"
)

// PricedItem is one line of a pricing result.  BasePrice is the seat's
// undiscounted price; FinalPrice is what the seat costs after the
// order's discount has been distributed.
type PricedItem struct {
    SeatID     uint64  `json:"seat_id"`
    BasePrice  float64 `json:"base_price"`
    FinalPrice float64 `json:"final_price"`
}

// PricingResult is the outcome of pricing a seat list.  It is used both
// for authoritative booking pricing and for non-authoritative quotes,
// which must agree given identical inputs.
type PricingResult struct {
    Items          []PricedItem `json:"items"`
    Subtotal       float64      `json:"subtotal"`
    DiscountAmount float64      `json:"discount_amount"`
    Total          float64      `json:"total"`
    Currency       string       `json:"currency"`
    PromoCode      *string      `json:"promo_code"`
}

// PricingEngine computes order amounts from seat prices and an optional
// promo code.  It holds no state besides the coupon validator and is
// deterministic: identical seats, code and validator verdict always
// produce an identical result.
type PricingEngine struct {
    coupons coupon.Validator
}

// NewPricingEngine returns a PricingEngine using the given validator.
func NewPricingEngine(coupons coupon.Validator) *PricingEngine {
    return &PricingEngine{coupons: coupons}
}

// round2 rounds to two decimal places, half away from zero.
func round2(x float64) float64 {
    return math.Round(x*100) / 100
}

// Price builds one line per seat in input order and, when a promo code
// is supplied, distributes the validated discount across the lines in
// proportion to each line's share of the subtotal.  Per line rounding
// error is compensated on the last line so the final prices always sum
// to max(0, subtotal-discount) exactly.
//
// An empty seat list fails ErrBadRequest.  An invalid code fails
// ErrBadRequest carrying the validator's message.  A validator transport
// failure propagates unclassified.
func (e *PricingEngine) Price(ctx context.Context, seats []model.Seat, promoCode *string, userID uint64, currency string) (*PricingResult, error) {
    if len(seats) == 0 {
        return nil, fmt.Errorf("%w: seat list is empty", model.ErrBadRequest)
    }
    items := make([]PricedItem, 0, len(seats))
    var subtotal float64
    for _, s := range seats {
        subtotal += s.Price
        items = append(items, PricedItem{SeatID: s.ID, BasePrice: s.Price, FinalPrice: s.Price})
    }
    subtotal = round2(subtotal)
    result := &PricingResult{
        Items:    items,
        Subtotal: subtotal,
        Total:    subtotal,
        Currency: currency,
    }
    if promoCode == nil || *promoCode == "" {
        return result, nil
    }

    verdict, err := e.coupons.ValidateCoupon(ctx, coupon.Request{
        Code:        *promoCode,
        UserID:      userID,
        OrderAmount: subtotal,
    })
    if err != nil {
        return nil, err
    }
    if !verdict.IsValid {
        msg := verdict.ErrorMessage
        if msg == "" {
            msg = "invalid promo code"
        }
        return nil, fmt.Errorf("%w: %s", model.ErrBadRequest, msg)
    }
    discount := round2(verdict.DiscountAmount)

    for i := range result.Items {
        proportion := result.Items[i].BasePrice / subtotal
        itemDiscount := round2(proportion * discount)
        final := round2(result.Items[i].BasePrice - itemDiscount)
        if final < 0 {
            final = 0
        }
        result.Items[i].FinalPrice = final
    }
    var totalFinal float64
    for _, it := range result.Items {
        totalFinal += it.FinalPrice
    }
    expected := subtotal - discount
    if expected < 0 {
        expected = 0
    }
    // Any residue from per line rounding lands on the last line in input
    // order, keeping the sum of final prices equal to the expected total.
    // The last line may dip below zero when the residue exceeds it; the
    // sum is what must hold.
    if diff := round2(expected - totalFinal); diff != 0 {
        last := &result.Items[len(result.Items)-1]
        last.FinalPrice = round2(last.FinalPrice + diff)
    }
    result.DiscountAmount = discount
    result.Total = round2(expected)
    result.PromoCode = promoCode
    return result, nil
}
