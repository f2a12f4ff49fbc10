package reports

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for a report type or record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNameTaken is returned when a report type name is already used.
	ErrNameTaken = errors.New("report type name already exists")
	// ErrWrongMode is returned for an operation the report type's mode does not support.
	ErrWrongMode = errors.New("operation not supported in this mode")
	// ErrSchemaMismatch is returned when field, type or question lists do not line up.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownField is returned for values keyed by a field the table does not have.
	ErrUnknownField = errors.New("unknown field")
)

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}
