package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrDataConflict       = errors.New("data conflict")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrRateLimit          = errors.New("rate limit")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Type just for marshalling purpose.
// Should only be used immediately before marshalling.
type JSON struct {
	Error string `json:"error"`
}

// Let users know which required request parameter is not provided.
type RequiredJSONBodyParamError struct {
	ParamName string
}

func (e *RequiredJSONBodyParamError) Error() string {
	return fmt.Sprintf("JSON body argument %q is required, but not found", e.ParamName)
}

func (e *RequiredJSONBodyParamError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Reports an order that is not in the status the operation requires.
type InvalidOrderStateError struct {
	OrderID string
	Status  string
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("order %q is in status %q", e.OrderID, e.Status)
}

func (e *InvalidOrderStateError) Is(target error) bool {
	return target == ErrInvalidRequest
}
