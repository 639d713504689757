package command

import "errors"

// Domain errors for command extraction.
var (
	// ErrMissingParameter is returned when a step lacks the slot id or color its opcode needs.
	ErrMissingParameter = errors.New("command: step is missing an opcode parameter")

	// ErrUnknownOpcode is returned by Parse for an opcode outside the step table.
	ErrUnknownOpcode = errors.New("command: unknown opcode")
)
