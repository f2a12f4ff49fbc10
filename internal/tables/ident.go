package tables

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierBytes matches the Postgres identifier limit.
const MaxIdentifierBytes = 63

// PrimaryKey is the name of the auto-incrementing key column of every table.
const PrimaryKey = "id"

var ErrInvalidIdentifier = errors.New("invalid identifier")

var identPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// ValidateIdentifier checks that name can be used verbatim as a column name.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	case len(name) > MaxIdentifierBytes:
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidIdentifier, name, MaxIdentifierBytes)
	case !identPattern.MatchString(name):
		return fmt.Errorf("%w: %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidIdentifier, name)
	case strings.EqualFold(name, PrimaryKey):
		return fmt.Errorf("%w: %q is reserved", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateFields validates every name and rejects duplicates. Names that
// differ only in letter case are duplicates, as SQLite column names are
// case-insensitive.
func ValidateFields(fields []string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if err := ValidateIdentifier(f); err != nil {
			return err
		}
		k := strings.ToLower(f)
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidIdentifier, f)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// RecordTableName is the physical record table of a report type.
func RecordTableName(reportTypeID uint) string {
	return fmt.Sprintf("report_%d", reportTypeID)
}

// QuestionTableName is the physical one-row question table of a report type.
func QuestionTableName(reportTypeID uint) string {
	return RecordTableName(reportTypeID) + "_questions"
}
