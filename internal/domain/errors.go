package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable signals an unreachable or not-yet-built backend index.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrTimeout signals a backend call that exceeded its deadline.
	ErrTimeout = errors.New("backend timeout")
	// ErrDimensionMismatch signals a query vector that does not match the tenant's embedding dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidQuery signals a malformed or empty query. Surfaced to the caller, never retried.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnsupportedModalityPair signals a cross-modal translation the engine cannot perform.
	ErrUnsupportedModalityPair = errors.New("unsupported modality pair")
	// ErrAllSourcesFailed signals that every backend failed or timed out for a query.
	// Terminal: distinguishes "no backend answered" from "no matches".
	ErrAllSourcesFailed = errors.New("all sources failed")
	// ErrTenantIsolation signals a cross-tenant data access. Always a programming
	// defect; requests must halt on it, never degrade.
	ErrTenantIsolation = errors.New("tenant isolation violation")
	// ErrEmbeddingProviderError signals an embedding gateway failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrUnauthorized signals a missing or invalid API key.
	ErrUnauthorized = errors.New("unauthorized")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the expected and actual dimensions.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}

// TenantIsolationError wraps ErrTenantIsolation with both tenant identifiers.
type TenantIsolationError struct {
	Want string
	Got  string
}

func (e *TenantIsolationError) Error() string {
	return fmt.Sprintf("%s: data for tenant %q reached a request for tenant %q",
		ErrTenantIsolation.Error(), e.Got, e.Want)
}

func (e *TenantIsolationError) Unwrap() error { return ErrTenantIsolation }

// NewTenantIsolation creates a tenant isolation error.
func NewTenantIsolation(want, got string) error {
	return &TenantIsolationError{Want: want, Got: got}
}
