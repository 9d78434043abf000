package driver

import (
	"errors"
	"fmt"
)

// ErrSetup matches every *SetupError via errors.Is.
var ErrSetup = errors.New("setup failed")

// SetupError means the script could not be run at all, so no trace was
// produced. Op is "resolve" or "read".
type SetupError struct {
	Op   string
	Path string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

func (e *SetupError) Is(target error) bool { return target == ErrSetup }
