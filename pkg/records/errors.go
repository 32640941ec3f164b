package records

import "fmt"

// InvalidInputError reports a malformed key or payload. No store call
// was attempted.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return e.Reason }

// DuplicateKeyError reports that the existence probe found a point for
// the key during create. The write never happened.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("the id '%s' already exists", e.Key)
}

// NotFoundError reports that the existence probe found no point for the
// key during delete. No purge was issued.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the id '%s' doesn't exist", e.Key)
}

// StoreUnavailableError wraps any transport or store-level failure. The
// effect of the attempted operation is unknown: it may or may not have
// been applied store-side. Callers must re-check state before retrying
// non-idempotent operations.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
