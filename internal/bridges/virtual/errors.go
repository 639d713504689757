package virtual

import "errors"

// Domain errors for the virtual twin bridge.
var (
	// ErrNotConnected is returned when the MQTT transport to the twin is down.
	ErrNotConnected = errors.New("virtual: not connected")

	// ErrNotReady is returned when a command is sent to a lane that is not Standby.
	ErrNotReady = errors.New("virtual: lane not ready")

	// ErrUnknownLibraryObject is returned when a scene object has no library id.
	ErrUnknownLibraryObject = errors.New("virtual: unknown library object")

	// ErrInvalidScene is returned when a graph lacks the elements a scene needs.
	ErrInvalidScene = errors.New("virtual: invalid scene")
)
