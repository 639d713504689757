package plant

import (
	"errors"
	"fmt"
)

// Domain errors for the plant graph.
var (
	// ErrLookupNotFound is returned when a query expected to match exactly one Element matches none.
	ErrLookupNotFound = errors.New("plant: lookup found no element")

	// ErrLookupAmbiguous is returned when a query expected to match exactly one Element matches several.
	ErrLookupAmbiguous = errors.New("plant: lookup found more than one element")

	// ErrDuplicateName is returned when a child name is already taken by a sibling.
	ErrDuplicateName = errors.New("plant: duplicate element name")

	// ErrInvalidLink is returned when a link endpoint is missing or both endpoints share an Element.
	ErrInvalidLink = errors.New("plant: invalid link")
)

// LookupError reports a single-result query that did not match exactly once.
type LookupError struct {
	Query string
	Count int
}

func (e *LookupError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%v: %s", ErrLookupNotFound, e.Query)
	}
	return fmt.Sprintf("%v: %s (%d matches)", ErrLookupAmbiguous, e.Query, e.Count)
}

// Is matches ErrLookupNotFound or ErrLookupAmbiguous depending on the count.
func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrLookupNotFound:
		return e.Count == 0
	case ErrLookupAmbiguous:
		return e.Count > 1
	}
	return false
}
