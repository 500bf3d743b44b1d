package service

import (
	"errors"
	"fmt"
)

// Typed failures surfaced to callers. Services wrap them with context; match with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrImportFailed = errors.New("import failed")

	// ErrOutstandingBalance is a BadRequest raised when a non-zero balance blocks a removal
	ErrOutstandingBalance = fmt.Errorf("%w: outstanding balance", ErrBadRequest)
)

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func outstandingBalance(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutstandingBalance, fmt.Sprintf(format, args...))
}

func importFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrImportFailed, fmt.Sprintf(format, args...))
}
