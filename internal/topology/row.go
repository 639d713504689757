package topology

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Station types.
const (
	TypeSink   = "productSink"
	TypeSource = "productSource"

	// TypeEmpty marks a slot without a station, as does an empty type.
	TypeEmpty = "empty"
)

// Colors is the station color vocabulary in canonical order.
var Colors = []string{"red", "green", "blue"}

var validate = validator.New()

// SlotRow is one line of the slot property table.
type SlotRow struct {
	ID    int    `json:"id" validate:"min=1"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

// stationSpec is the vocabulary a station-bearing row must satisfy.
type stationSpec struct {
	Color string `validate:"required,oneof=red green blue"`
	Type  string `validate:"required,oneof=productSink productSource"`
}

// HasStation reports whether the row places a station in its slot.
func (r SlotRow) HasStation() bool {
	t := strings.TrimSpace(r.Type)
	return t != "" && t != TypeEmpty
}

// Validate checks the id and, for station rows, the color and type vocabulary.
func (r SlotRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &MalformedInputError{SlotID: r.ID, Reason: formatValidationError(err)}
	}
	if !r.HasStation() {
		return nil
	}
	if err := validate.Struct(stationSpec{Color: r.Color, Type: r.Type}); err != nil {
		return &UnknownColorOrTypeError{SlotID: r.ID, Color: r.Color, Type: r.Type}
	}
	return nil
}

func formatValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err.Error()
	}
	e := validationErrs[0]
	switch e.Tag() {
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "required":
		return e.Field() + " is required"
	default:
		return e.Field() + " failed " + e.Tag()
	}
}
