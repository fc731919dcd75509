package bash

import (
	"errors"
	"fmt"
)

var (
	ErrScript = errors.New("script failed")
	ErrStart  = errors.New("unable to start shell")
)

// Returned by [Logs.Err] when a script exits with a non-zero status.
type ScriptError struct {
	ExitCode int
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s with exit status %d", ErrScript, e.ExitCode)
}

// Reports whether target is [ErrScript].
func (e *ScriptError) Is(target error) bool {
	return target == ErrScript
}
