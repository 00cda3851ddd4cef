package deck

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidRequest is returned for malformed caller input (empty or
	// relative path, disallowed method). The device is never contacted.
	ErrInvalidRequest = errors.New("deck: invalid request")

	// ErrUpstreamUnreachable is returned when the device could not be
	// reached at the transport level (connection refused, timeout, DNS
	// failure). Device-side non-2xx responses are NOT this error; they
	// pass through in the response envelope.
	ErrUpstreamUnreachable = errors.New("deck: device unreachable")

	// ErrDeviceRejected is returned by the clip playback sequence under the
	// abort_on_reject policy when the device answers an intermediate step
	// with a non-2xx status.
	ErrDeviceRejected = errors.New("deck: device rejected request")
)
