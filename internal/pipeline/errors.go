package pipeline

import (
	"fmt"

	oerrors "github.com/yoctobom/cli/internal/errors"
)

// LimitError reports that a kblookup run stopped after searching MaxNew new
// components. The output lookup file is complete up to that point.
type LimitError struct {
	// Processed is the number of newly searched components.
	Processed int

	// Limit is the configured maximum.
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%d components processed - terminating. Please rerun with -k option to append to kbfile", e.Limit)
}

// Unwrap lets callers match the error with errors.Is(err, ErrLimitReached).
func (e *LimitError) Unwrap() error {
	return oerrors.ErrLimitReached
}
