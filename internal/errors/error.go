package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("invalid or expired token")
	ErrInfrastructure = errors.New("backing service failure")
	ErrNotFound       = errors.New("not found")
)

// InvalidInputError reports a request the caller has to fix before retrying.
func InvalidInputError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InfrastructureError wraps a store, signer or mail failure. The original
// error stays reachable through errors.Is/As for logging.
func InfrastructureError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}

func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s configuration value must be set", config)
}

// Is and As re-export the standard helpers so callers importing this package
// under its own name don't need a second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
