package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel errors classifying store failures. Use errors.Is against an *Error.
var (
	// ErrStoreUnavailable covers connection, initialization and unexpected driver failures.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound indicates the entity addressed by a mutation does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConstraintViolation indicates the write references missing data or breaks a uniqueness rule.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Error is returned by every Store implementation.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// wrapGormError classifies a gorm error. It expects gorm to run with TranslateError enabled.
func wrapGormError(op string, err error) error {
	if err == nil {
		return nil
	}

	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(op, ErrNotFound, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return newError(op, ErrConstraintViolation, err)
	default:
		return newError(op, ErrStoreUnavailable, err)
	}
}
