package inventory

import "errors"

// Domain errors for the inventory package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, inventory.ErrInvalidAction) {
//	    // handle bad action
//	}
var (
	// ErrInvalidItem is returned when an item name is empty.
	ErrInvalidItem = errors.New("inventory: invalid item name")

	// ErrInvalidAction is returned when an action is not add, remove or set.
	ErrInvalidAction = errors.New("inventory: invalid action")

	// ErrItemNotFound is returned when an item key does not exist.
	ErrItemNotFound = errors.New("inventory: item not found")
)
