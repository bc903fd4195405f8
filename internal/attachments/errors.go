package attachments

import "fmt"

// WriteError reports that one attachment could not be written to disk.
type WriteError struct {
	// Path is the destination (or the directory when it could not be created)
	Path string

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	return fmt.Sprintf("write attachment %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *WriteError) Unwrap() error {
	return e.Err
}
