package serial

import "errors"

// Domain errors for the serial bridge package.
var (
	// ErrNotConnected is returned when the port of a link has been closed or lost.
	ErrNotConnected = errors.New("serial: not connected")

	// ErrConnectionFailed is returned when a port cannot be opened.
	ErrConnectionFailed = errors.New("serial: connection failed")

	// ErrHandshakeFailed is returned when a controller never identifies itself.
	ErrHandshakeFailed = errors.New("serial: handshake failed")

	// ErrNotReady is returned when a command is sent to a lane that is not Standby.
	ErrNotReady = errors.New("serial: lane not ready")

	// ErrNoPorts is returned when discovery finds no controller port.
	ErrNoPorts = errors.New("serial: no controller ports found")

	// ErrLaneConflict is returned when two ports identify as the same lane.
	ErrLaneConflict = errors.New("serial: lane claimed by two ports")
)
