package errors

import (
	"fmt"
)

// ErrStagingConflict is returned when a staged copy can't be moved into place
// because the destination appeared while the copy was in progress.
var ErrStagingConflict = New("destination created during copy")

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}
