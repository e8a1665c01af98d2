package clause

import (
	"errors"
	"fmt"
)

// CompositionError reports an inconsistency between the catalog and an
// ordering, such as an unknown clause id reaching the expander. It cannot
// be caused by user input and is treated as an internal failure.
type CompositionError struct {
	ID  ID
	err error
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition: clause %q: %v", e.ID, e.err)
}

func (e *CompositionError) Unwrap() error {
	return e.err
}

// ErrUnknownClause is wrapped by the CompositionError for an id missing from
// the catalog.
var ErrUnknownClause = errors.New("unknown clause")

// IsComposition reports whether err is a composition failure.
func IsComposition(err error) bool {
	var ce *CompositionError
	return errors.As(err, &ce)
}
