package coupon

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"
)

// HTTPValidator validates promo codes against an external HTTP service.
// The service is expected to accept a JSON Request on POST
// {baseURL}/v1/coupons/validate and answer 200 with a JSON Result.  Any
// other status is treated as an infrastructure failure, not as an
// invalid code.
type HTTPValidator struct {
    baseURL string
    client  *http.Client
}

// NewHTTPValidator returns a validator calling the service at baseURL.
// A short client timeout keeps a slow validator from stalling checkout.
func NewHTTPValidator(baseURL string) *HTTPValidator {
    return &HTTPValidator{
        baseURL: baseURL,
        client:  &http.Client{Timeout: 5 * time.Second},
    }
}

// ValidateCoupon posts the request to the validation service and decodes
// its verdict.
func (v *HTTPValidator) ValidateCoupon(ctx context.Context, req Request) (Result, error) {
    payload, err := json.Marshal(req)
    if err != nil {
        return Result{}, err
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/coupons/validate", bytes.NewReader(payload))
    if err != nil {
        return Result{}, err
    }
    httpReq.Header.Set("Content-Type", "application/json")
    resp, err := v.client.Do(httpReq)
    if err != nil {
        return Result{}, fmt.Errorf("coupon service request: %w", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        // Drain so the connection can be reused.
        _, _ = io.Copy(io.Discard, resp.Body)
        return Result{}, fmt.Errorf("coupon service returned status %d", resp.StatusCode)
    }
    var res Result
    if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
        return Result{}, fmt.Errorf("coupon service response: %w", err)
    }
    return res, nil
}
