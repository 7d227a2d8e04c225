package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Market data errors

var (
	// ErrInvalidSymbol indicates an unknown trading symbol
	ErrInvalidSymbol = errors.New("invalid trading symbol")

	// ErrInvalidTimeframe indicates an unsupported candle timeframe
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	// ErrInsufficientData indicates not enough stored data for a computation
	ErrInsufficientData = errors.New("insufficient market data")

	// ErrNoDefaultConfig indicates no default regime config row exists
	ErrNoDefaultConfig = errors.New("no default regime config")
)

// Feed errors

var (
	// ErrFeedUnavailable indicates the market data feed is unavailable
	ErrFeedUnavailable = errors.New("market data feed unavailable")

	// ErrFeedBadResponse indicates the feed returned an unparseable payload
	ErrFeedBadResponse = errors.New("malformed feed response")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// WebSocket-specific errors

var (
	// ErrWSNotConnected indicates WebSocket is not connected
	ErrWSNotConnected = errors.New("websocket not connected")

	// ErrWSSubscriptionFailed indicates WebSocket subscription failed
	ErrWSSubscriptionFailed = errors.New("websocket subscription failed")

	// ErrWSMaxReconnectAttempts indicates max reconnection attempts reached
	ErrWSMaxReconnectAttempts = errors.New("max websocket reconnection attempts reached")
)

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
