package selection

import (
	"errors"
	"fmt"

	"github.com/wonny/openscreen/internal/headers"
)

var (
	// ErrEmptyDataset is returned when there is nothing to screen
	ErrEmptyDataset = errors.New("no data loaded")

	// ErrMissingColumns means Open, High or Low did not resolve
	ErrMissingColumns = errors.New("missing required columns")

	// ErrMissingFullColumns means a column needed by the full screener did not resolve
	ErrMissingFullColumns = errors.New("missing full-screener columns")
)

// MissingColumnsError names the roles a screening run still needs
type MissingColumnsError struct {
	Kind  error // ErrMissingColumns or ErrMissingFullColumns
	Roles []headers.Role
}

func (e *MissingColumnsError) Error() string {
	if e.Kind == ErrMissingFullColumns {
		return fmt.Sprintf("full screener requires Volume, Avg Volume (5d), Close and Market Cap columns (missing: %s)",
			headers.DisplayNames(e.Roles))
	}
	return fmt.Sprintf("CSV must include Open, High and Low columns (missing: %s)", headers.DisplayNames(e.Roles))
}

func (e *MissingColumnsError) Unwrap() error {
	return e.Kind
}

// IsPrecondition reports whether err is a user-correctable input problem
// (empty dataset or missing columns) rather than an internal failure
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrMissingFullColumns)
}
