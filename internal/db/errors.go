package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrNotFound = errors.New("db: not found")
	ErrConflict = errors.New("db: conflict")
)

// Operation names for error context.
const (
	OpQuery  = "query"
	OpUpsert = "upsert"
	OpGet    = "get"
	OpDelete = "delete"
	OpPing   = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
// Parameter values are never included.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
