package compiler

import (
	"errors"
	"fmt"
)

// Domain errors for process compilation.
var (
	// ErrMissingProduct is returned when no product element exists for a required color.
	ErrMissingProduct = errors.New("compiler: missing product")

	// ErrInvalidPair is returned when a transport pair references a slot without a station.
	ErrInvalidPair = errors.New("compiler: invalid transport pair")
)

// MissingProductError names the color and product kind that could not be wired.
type MissingProductError struct {
	Color string
	Kind  string // "Workpiece" or "Endproduct"
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("%v: no %s for color %q", ErrMissingProduct, e.Kind, e.Color)
}

func (e *MissingProductError) Unwrap() error { return ErrMissingProduct }
