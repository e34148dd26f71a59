package catalog

import (
	"errors"
	"fmt"
)

// ErrExists reports that Build found a catalog file already present.
var ErrExists = errors.New("catalog already exists")

// ErrMissing reports that Update or Verify could not find the catalog.
var ErrMissing = errors.New("catalog does not exist")

// IntegrityError reports that a store operation touched an unexpected
// number of rows for a unique key. It indicates a catalog consistency
// bug rather than a file problem, and is isolated per file so one bad
// key cannot cascade across a pass.
type IntegrityError struct {
	Op   string // "insert", "update" or "lookup"
	Path string
	Rows int64
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("catalog integrity: %s %q affected %d rows, want 1", e.Op, e.Path, e.Rows)
}

// IsIntegrityError reports whether err is an IntegrityError, unwrapping
// as needed.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
