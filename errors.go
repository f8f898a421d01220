package serialport

import (
	"errors"
	"fmt"
)

// Predefined error types for robust error handling
var (
	// Binding errors
	ErrPortMissing   = errors.New("serial port does not exist")
	ErrPortLocked    = errors.New("serial port is locked")
	ErrHandleInvalid = errors.New("serial port handle is not open")
	ErrConfigInvalid = errors.New("invalid serial configuration")
	ErrCanceled      = errors.New("serial operation canceled")
	ErrDisconnected  = errors.New("serial device disconnected")

	// Port state errors
	ErrPortOpening     = errors.New("serial port is opening")
	ErrPortAlreadyOpen = errors.New("serial port is already open")
	ErrPortNotOpen     = errors.New("serial port is not open")

	// Write payload errors
	ErrInvalidData = errors.New("unsupported serial write data")
)

// ConfigError reports which configuration field failed validation.
// It matches ErrConfigInvalid with errors.Is.
type ConfigError struct {
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %v", ErrConfigInvalid, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// IsClosedError reports whether err means the handle went away underneath an
// operation, either through Close or a disconnect.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, ErrHandleInvalid) || errors.Is(err, ErrDisconnected)
}
