package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownResource is returned for a logical resource name missing from the endpoint table.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrInvalidDoorCommand is returned by ControlDoor before any request is sent.
	ErrInvalidDoorCommand = errors.New("invalid door command")
	// ErrNotDeviceInfo means the device answered the connectivity check with an unexpected document.
	ErrNotDeviceInfo = errors.New("device info response has no DeviceInfo element")
)

// TransportError wraps network level failures: DNS, refused connections, timeouts.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// RequestFailedError is a non-2xx answer from the device.
type RequestFailedError struct {
	StatusCode int
	URL        string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}

// IsAuth reports whether the device rejected the credentials.
func (e *RequestFailedError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// MalformedResponseError is a 2xx answer whose body is not a well-formed XML document.
type MalformedResponseError struct {
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
