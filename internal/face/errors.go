package face

import "errors"

// Domain errors for the face package.
var (
	// ErrInvalidName is returned when a person name is empty.
	ErrInvalidName = errors.New("face: invalid name")

	// ErrPersonExists is returned when registering a name that is
	// already known.
	ErrPersonExists = errors.New("face: person already known")

	// ErrPersonNotFound is returned when a person name does not exist.
	ErrPersonNotFound = errors.New("face: person not found")
)
