package db

import "errors"

// ErrIndexNotFound signals a missing FT index: the tenant/modality pair has
// never been built, or the backend lost it.
var ErrIndexNotFound = errors.New("db: index not found")

// Op constants map to backend command names for error context.
const (
	OpSearch    = "FT.SEARCH"
	OpIndexInfo = "FT.INFO"
	OpPing      = "PING"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
