// Package model defines the domain types shared across repositories,
// services and handlers, together with the sentinel errors used to
// classify failures. Services wrap these sentinels with context via
// fmt.Errorf("%w: ...") and handlers translate them to HTTP statuses:
// ErrNotFound becomes 404, ErrConflict 409 and ErrBadRequest 400.
// Anything else is treated as an infrastructure error and surfaces
// as a 500 response.
package model

import "errors"

// ErrNotFound is returned when a referenced seat or booking does not
// exist. For batch seat lookups it covers the case where fewer rows
// come back than ids were requested.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation loses a race or targets a
// record in the wrong state: a seat that is not AVAILABLE, a version
// check that matched zero rows, or a booking that is already terminal.
var ErrConflict = errors.New("conflict")

// ErrBadRequest is returned for caller mistakes: an empty seat list,
// an ownership mismatch, or an invalid or expired promo code.
var ErrBadRequest = errors.New("bad request")
