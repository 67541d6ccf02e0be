// Package coupon defines the promo code validation boundary.  The
// service does not own coupon rules; it asks an external validator
// whether a code applies to an order and what absolute discount it
// grants.  The pricing engine treats an invalid verdict as a caller
// error and an unreachable validator as an infrastructure error.
package coupon

import "context"

// Request carries the facts the validator needs to judge a code.
type Request struct {
    Code        string  `json:"code"`
    UserID      uint64  `json:"user_id"`
    OrderAmount float64 `json:"order_amount"`
}

// Result is the validator's verdict.  DiscountAmount is an absolute
// amount in the order's currency, meaningful only when IsValid is true.
// ErrorMessage explains a rejection in user readable form.
type Result struct {
    IsValid        bool    `json:"is_valid"`
    DiscountAmount float64 `json:"discount_amount"`
    ErrorMessage   string  `json:"error_message"`
}

// Validator decides whether a promo code applies to an order.
// Implementations must be safe for concurrent use.
type Validator interface {
    ValidateCoupon(ctx context.Context, req Request) (Result, error)
}

// Disabled is the fallback validator used when no validation service is
// configured.  It rejects every code so promo codes simply do not work
// rather than silently granting discounts.
type Disabled struct{}

// ValidateCoupon always reports the code as invalid.
func (Disabled) ValidateCoupon(ctx context.Context, req Request) (Result, error) {
    return Result{IsValid: false, ErrorMessage: "promo codes are not enabled"}, nil
}
