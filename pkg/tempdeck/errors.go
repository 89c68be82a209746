package tempdeck

import "errors"

// Predefined error kinds. Callers distinguish them with errors.Is; every
// error returned by this package wraps exactly one of these.
var (
	// ErrDeviceNotFound indicates that discovery yielded no usable device,
	// or an ambiguous set when exactly one was required.
	ErrDeviceNotFound = errors.New("tempdeck: device not found")

	// ErrResponseTimeout indicates that the device did not send a complete
	// response line within the configured read timeout. A common cause is
	// connecting to a serial device that is not a tempdeck.
	ErrResponseTimeout = errors.New("tempdeck: response timeout")

	// ErrInvalidResponse indicates that a response was received but did not
	// match the expected format.
	ErrInvalidResponse = errors.New("tempdeck: invalid response")

	// ErrOutOfRange indicates a requested target temperature outside the
	// device's operating range. Nothing is sent on the wire.
	ErrOutOfRange = errors.New("tempdeck: target temperature out of range")

	// ErrSessionClosed indicates an operation on a closed session.
	ErrSessionClosed = errors.New("tempdeck: session closed")
)
