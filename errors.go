package fieldstore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbound reports an access through an entity with no store location
	// or no identity. Only returned when strict binding is enabled.
	ErrUnbound = errors.New("fieldstore: entity not bound to a record")

	ErrInvalidField = errors.New("fieldstore: field name is required")

	ErrUnsupportedValue = errors.New("fieldstore: value is not JSON-representable")

	ErrLocationMismatch = errors.New("fieldstore: entity location does not match batch location")
)

// StorageError captures the failing storage operation and location
// alongside the originating error.
type StorageError struct {
	Op       string
	Location string
	Err      error
}

func (e *StorageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("fieldstore: %s %s: %v", e.Op, describeLocation(e.Location), e.Err)
}

func (e *StorageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeLocation(location string) string {
	if location == "" {
		return "location=<empty>"
	}
	return fmt.Sprintf("location=%q", location)
}

// wrapStorageError attaches op/location metadata, filling the blanks of an
// existing StorageError instead of nesting a second one.
func wrapStorageError(op, location string, err error) error {
	if err == nil {
		return nil
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		if storageErr.Op == "" {
			storageErr.Op = op
		}
		if storageErr.Location == "" {
			storageErr.Location = location
		}
		return err
	}

	return &StorageError{
		Op:       op,
		Location: location,
		Err:      err,
	}
}
