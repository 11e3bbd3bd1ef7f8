package ports

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input such as a negative quantity.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a catalog item or cart line does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a catalog item with the same id already exists.
	ErrConflict = errors.New("conflict")
	// ErrEmptyCart is returned when an update is attempted while no cart holds any item.
	ErrEmptyCart = errors.New("no orders were submitted")
)
