package topology

import (
	"errors"
	"fmt"
)

// Domain errors for topology building.
var (
	// ErrMalformedInput is returned for unreadable rows and for ids that do not form 1..N.
	ErrMalformedInput = errors.New("topology: malformed input")

	// ErrUnknownColorOrType is returned when a station's color or type is outside the vocabulary.
	ErrUnknownColorOrType = errors.New("topology: unknown color or type")
)

// MalformedInputError identifies the offending row or slot id.
type MalformedInputError struct {
	Row    int // 1-based data row, 0 when not row specific
	SlotID int
	Reason string
}

func (e *MalformedInputError) Error() string {
	switch {
	case e.Row > 0:
		return fmt.Sprintf("%v: row %d: %s", ErrMalformedInput, e.Row, e.Reason)
	case e.SlotID > 0:
		return fmt.Sprintf("%v: slot %d: %s", ErrMalformedInput, e.SlotID, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrMalformedInput, e.Reason)
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// UnknownColorOrTypeError identifies the station that violates the vocabulary.
type UnknownColorOrTypeError struct {
	SlotID int
	Color  string
	Type   string
}

func (e *UnknownColorOrTypeError) Error() string {
	return fmt.Sprintf("%v: slot %d: color %q type %q", ErrUnknownColorOrType, e.SlotID, e.Color, e.Type)
}

func (e *UnknownColorOrTypeError) Unwrap() error { return ErrUnknownColorOrType }
