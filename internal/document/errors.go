package document

import "errors"

// Domain errors for the document store.
var (
	// ErrHierarchyNotFound is returned when a document has no instance hierarchy of the requested name.
	ErrHierarchyNotFound = errors.New("document: instance hierarchy not found")

	// ErrSubtreeNotFound is returned when an import names an entry the source document lacks.
	ErrSubtreeNotFound = errors.New("document: named subtree not found")

	// ErrInvalidDocument is returned when a document cannot be decoded or rebuilt into a graph.
	ErrInvalidDocument = errors.New("document: invalid document")

	// ErrUnsupportedVersion is returned when a document was written by an incompatible format version.
	ErrUnsupportedVersion = errors.New("document: unsupported format version")
)
