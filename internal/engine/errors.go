package engine

import (
	"errors"
	"fmt"

	"github.com/nerrad567/plantline/internal/command"
)

// Domain errors for command execution.
var (
	// ErrChannelUnavailable is returned when a requested back-end has no connected lane.
	ErrChannelUnavailable = errors.New("engine: channel unavailable")

	// ErrCompletionTimeout is returned when a lane does not reach Standby or
	// report completion within the configured timeout.
	ErrCompletionTimeout = errors.New("engine: timed out waiting for channel")

	// ErrRunInProgress is returned when a run is started while another is executing.
	ErrRunInProgress = errors.New("engine: a run is already in progress")

	// ErrNoBackends is returned when a run selects no back-end.
	ErrNoBackends = errors.New("engine: no back-end selected")

	// ErrRunNotFound is returned by the repository for an unknown run id.
	ErrRunNotFound = errors.New("engine: run not found")
)

// ChannelUnavailableError identifies the missing lane and the command that needed it.
type ChannelUnavailableError struct {
	Backend Backend
	Class   command.Class
	Index   int
}

func (e *ChannelUnavailableError) Error() string {
	return fmt.Sprintf("%v: %s %s lane (command %d)", ErrChannelUnavailable, e.Backend, e.Class, e.Index)
}

func (e *ChannelUnavailableError) Unwrap() error { return ErrChannelUnavailable }

// DispatchError wraps a failure of one command on one back-end.
type DispatchError struct {
	Index   int
	Opcode  string
	Backend Backend
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("command %d (%s) on %s: %v", e.Index, e.Opcode, e.Backend, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
