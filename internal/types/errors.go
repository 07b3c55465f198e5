package types

import "errors"

// Sentinel errors shared across services. Handlers translate these into the
// HTTP response envelope; everything else becomes a 500.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrValidation      = errors.New("invalid input")
	ErrUpstream        = errors.New("upstream service call failed")
)

// FieldError carries a field-level validation failure for the errors[] array
// of the response envelope.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
