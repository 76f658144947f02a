package shell

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by RunCheck when the driver has not been
// activated. Plain Run signals the same condition with a nil result and nil
// error instead.
var ErrNotReady = errors.New("shell driver not activated")

// ExitStatusError reports a checked command that did not exit zero.
type ExitStatusError struct {
	Command string
	Status  int
	Output  []string
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.Status)
}
