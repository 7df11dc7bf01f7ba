package errors

import (
	"errors"
	"fmt"
)

// Common error types for the BankID login flow
var (
	// Order lifecycle errors
	ErrStartFailed       = errors.New("start failed")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid state transition")

	// Polling errors
	ErrPollerActive  = errors.New("poller already active for order")
	ErrPollingFailed = errors.New("polling failed")
	ErrUnauthorized  = errors.New("unauthorized")

	// Identity errors
	ErrInvalidPersonalNumber = errors.New("invalid personal number")
	ErrInvalidToken          = errors.New("invalid token")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
